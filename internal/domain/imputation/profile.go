// Package imputation completes partially populated telemetry rows from
// the values they carry and from role and session heuristics.
package imputation

import (
	"math"
	"os"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	"gopkg.in/yaml.v3"
)

// SessionValues holds one figure for training sessions and one for matches.
type SessionValues struct {
	Training float64 `yaml:"training" validate:"gte=0"`
	Match    float64 `yaml:"match" validate:"gte=0"`
}

func (v SessionValues) For(match bool) float64 {
	if match {
		return v.Match
	}
	return v.Training
}

// RoleValues keys SessionValues by tactical role with a fallback.
type RoleValues struct {
	Default SessionValues                     `yaml:"default"`
	Roles   map[player.Position]SessionValues `yaml:"roles" validate:"dive"`
}

func (r RoleValues) For(pos player.Position, match bool) float64 {
	if v, ok := r.Roles[pos]; ok {
		return v.For(match)
	}
	return r.Default.For(match)
}

// ZoneSplit distributes high speed running across the three speed bands.
type ZoneSplit struct {
	Z15To20 float64 `yaml:"z15_20" validate:"gte=0,lte=1"`
	Z20To25 float64 `yaml:"z20_25" validate:"gte=0,lte=1"`
	Over25  float64 `yaml:"over_25" validate:"gte=0,lte=1"`
}

func (s ZoneSplit) Sum() float64 {
	return s.Z15To20 + s.Z20To25 + s.Over25
}

type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max" validate:"gtefield=Min"`
}

func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// IntensityProfile shapes the time spent under 5 and between 5 and 10 W/kg.
// The high intensity fraction is (pmm-PowerOffset)/PowerDivisor bounded by
// HighFloor and the session ceiling.
type IntensityProfile struct {
	Bias         SessionValues `yaml:"bias"`
	HighFloor    float64       `yaml:"high_floor" validate:"gte=0,lte=1"`
	HighCeiling  SessionValues `yaml:"high_ceiling"`
	PowerOffset  float64       `yaml:"power_offset"`
	PowerDivisor float64       `yaml:"power_divisor" validate:"gt=0"`
}

type MaxPowerProfile struct {
	Factor float64 `yaml:"factor" validate:"gt=0"`
	Range  Bounds  `yaml:"range"`
}

// EquivalentProfile drives the equivalent distance multiplier
// 1 + A*(pmm-Baseline)/10 + B*accShare + C*over35Share.
type EquivalentProfile struct {
	A          float64 `yaml:"a"`
	B          float64 `yaml:"b"`
	C          float64 `yaml:"c"`
	Baseline   float64 `yaml:"baseline"`
	Multiplier Bounds  `yaml:"multiplier"`
}

type TrainingLoadProfile struct {
	K1 float64 `yaml:"k1"`
	K2 float64 `yaml:"k2"`
}

type RVPProfile struct {
	Base    float64 `yaml:"base"`
	HSR     float64 `yaml:"hsr"`
	Power   float64 `yaml:"power"`
	Sprint  float64 `yaml:"sprint"`
	Density float64 `yaml:"density"`
	Range   Bounds  `yaml:"range"`
}

// JitterProfile bounds the deterministic noise added to heuristic values.
type JitterProfile struct {
	MetabolicPower float64 `yaml:"metabolic_power" validate:"gte=0"`
	HSRShare       float64 `yaml:"hsr_share" validate:"gte=0,lte=1"`
}

// Profiles is the heuristic data the Engine falls back to when a value can
// neither be read from the row nor derived exactly.
type Profiles struct {
	HSRShare       RoleValues          `yaml:"hsr_share"`
	HSRSplit       ZoneSplit           `yaml:"hsr_split"`
	MetabolicPower RoleValues          `yaml:"metabolic_power"`
	TopSpeed       RoleValues          `yaml:"top_speed"`
	Over20WKgShare SessionValues       `yaml:"over_20wkg_share"`
	Over35WKgShare float64             `yaml:"over_35wkg_share" validate:"gte=0,lte=1"`
	AccDecShare    float64             `yaml:"acc_dec_share" validate:"gte=0,lte=1"`
	EventsPer9000m SessionValues       `yaml:"events_per_9000m"`
	MetersPerEvent float64             `yaml:"meters_per_event" validate:"gte=0"`
	Intensity      IntensityProfile    `yaml:"intensity"`
	MaxPower5s     MaxPowerProfile     `yaml:"max_power_5s"`
	Equivalent     EquivalentProfile   `yaml:"equivalent_distance"`
	TrainingLoad   TrainingLoadProfile `yaml:"training_load"`
	RVP            RVPProfile          `yaml:"rvp"`
	Jitter         JitterProfile       `yaml:"jitter"`
}

func DefaultProfiles() Profiles {
	return Profiles{
		HSRShare: RoleValues{
			Default: SessionValues{Training: 0.13, Match: 0.20},
			Roles: map[player.Position]SessionValues{
				player.PositionGoalkeeper: {Training: 0.03, Match: 0.05},
				player.PositionDefender:   {Training: 0.12, Match: 0.18},
				player.PositionMidfielder: {Training: 0.16, Match: 0.24},
				player.PositionForward:    {Training: 0.14, Match: 0.22},
			},
		},
		HSRSplit: ZoneSplit{Z15To20: 0.60, Z20To25: 0.35, Over25: 0.05},
		MetabolicPower: RoleValues{
			Default: SessionValues{Training: 8.2, Match: 9.2},
			Roles: map[player.Position]SessionValues{
				player.PositionGoalkeeper: {Training: 5.5, Match: 6.0},
			},
		},
		TopSpeed: RoleValues{
			Default: SessionValues{Training: 28, Match: 30},
			Roles: map[player.Position]SessionValues{
				player.PositionGoalkeeper: {Training: 26, Match: 26},
			},
		},
		Over20WKgShare: SessionValues{Training: 0.12, Match: 0.16},
		Over35WKgShare: 0.35,
		AccDecShare:    0.07,
		EventsPer9000m: SessionValues{Training: 16, Match: 22},
		MetersPerEvent: 7,
		Intensity: IntensityProfile{
			Bias:         SessionValues{Training: 0.75, Match: 0.85},
			HighFloor:    0.06,
			HighCeiling:  SessionValues{Training: 0.30, Match: 0.38},
			PowerOffset:  8,
			PowerDivisor: 6,
		},
		MaxPower5s: MaxPowerProfile{Factor: 1.6, Range: Bounds{Min: 8, Max: 22}},
		Equivalent: EquivalentProfile{
			A: 0.6, B: 0.8, C: 1.6, Baseline: 6,
			Multiplier: Bounds{Min: 1.02, Max: 1.25},
		},
		TrainingLoad: TrainingLoadProfile{K1: 0.5, K2: 0.02},
		RVP: RVPProfile{
			Base: 50, HSR: 60, Power: 1.8, Sprint: 8, Density: 4,
			Range: Bounds{Min: 45, Max: 98},
		},
		Jitter: JitterProfile{MetabolicPower: 0.3, HSRShare: 0.01},
	}
}

var profileValidator = validator.New()

func (p Profiles) Validate() error {
	if err := profileValidator.Struct(p); err != nil {
		return crerr.Wrap(err, "invalid imputation profiles")
	}
	if sum := p.HSRSplit.Sum(); math.Abs(sum-1) > 0.001 {
		return crerr.Newf("invalid imputation profiles: hsr split sums to %.3f, want 1", sum)
	}
	return nil
}

// ParseProfiles overlays YAML data on DefaultProfiles, so a document only
// needs the keys it changes.
func ParseProfiles(data []byte) (Profiles, error) {
	p := DefaultProfiles()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profiles{}, crerr.Wrap(err, "decode imputation profiles")
	}
	if err := p.Validate(); err != nil {
		return Profiles{}, err
	}
	return p, nil
}

func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, crerr.Wrapf(err, "read imputation profiles %s", path)
	}
	return ParseProfiles(data)
}
