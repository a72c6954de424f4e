package imputation

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/riskibarqy/perf-import/internal/domain/player"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

// Input is one partially populated row.
type Input struct {
	Metrics  map[telemetry.Field]float64
	Position player.Position
	IsMatch  bool
	// SeedKey identifies the row for jitter, e.g. player id and date.
	SeedKey string
}

// Engine fills missing metrics. A supplied value is kept, an exact
// derivation comes next and the heuristic profile is the last resort.
type Engine struct {
	profiles atomic.Pointer[Profiles]
	seed     uint64
}

func NewEngine(profiles Profiles, seed uint64) *Engine {
	e := &Engine{seed: seed}
	e.profiles.Store(&profiles)
	return e
}

func (e *Engine) Profiles() Profiles {
	return *e.profiles.Load()
}

// SetProfiles swaps the heuristic profiles. Rows already being completed
// keep the profiles they started with.
func (e *Engine) SetProfiles(p Profiles) {
	e.profiles.Store(&p)
}

// Complete returns the completed metrics and the flags of every field that
// was filled in or changed. The input map is not modified.
func (e *Engine) Complete(in Input) (map[telemetry.Field]float64, telemetry.ImputationFlags) {
	r := &row{
		values:  make(map[telemetry.Field]float64, len(in.Metrics)+32),
		flags:   make(telemetry.ImputationFlags),
		match:   in.IsMatch,
		role:    in.Position,
		profile: *e.profiles.Load(),
		rng:     e.rng(in.SeedKey),
	}
	for k, v := range in.Metrics {
		r.values[k] = v
	}

	r.clampNegative()
	r.deriveVolume()
	dist, hasDist := r.get(telemetry.FieldTotalDistance)
	if hasDist && dist > 0 {
		r.deriveIntensity(dist)
	} else {
		r.fitZones(dist, hasDist)
	}
	r.clampNegative()
	return r.values, r.flags
}

func (e *Engine) rng(key string) *rand.Rand {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], e.seed)
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(key))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
}

type row struct {
	values  map[telemetry.Field]float64
	flags   telemetry.ImputationFlags
	match   bool
	role    player.Position
	profile Profiles
	rng     *rand.Rand
}

func (r *row) get(f telemetry.Field) (float64, bool) {
	v, ok := r.values[f]
	return v, ok
}

func (r *row) has(f telemetry.Field) bool {
	_, ok := r.values[f]
	return ok
}

// fill sets f only when the row does not carry it yet.
func (r *row) fill(f telemetry.Field, v float64) {
	if r.has(f) || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	r.values[f] = v
	r.flags[f] = true
}

// overwrite replaces f and flags it when the value actually changes.
func (r *row) overwrite(f telemetry.Field, v float64) {
	if old, ok := r.values[f]; ok && old == v {
		return
	}
	r.values[f] = v
	r.flags[f] = true
}

func (r *row) jitter(amplitude float64) float64 {
	if amplitude <= 0 {
		return 0
	}
	return (r.rng.Float64()*2 - 1) * amplitude
}

// deriveVolume links distance, duration, distance per minute and average
// speed through their exact relations.
func (r *row) deriveVolume() {
	t, hasT := r.get(telemetry.FieldDurationMinutes)
	dpm, hasDPM := r.get(telemetry.FieldDistancePerMin)
	avg, hasAvg := r.get(telemetry.FieldAvgSpeed)

	if !r.has(telemetry.FieldTotalDistance) && hasT && t > 0 {
		switch {
		case hasDPM:
			r.fill(telemetry.FieldTotalDistance, round(dpm*t, 0))
		case hasAvg:
			r.fill(telemetry.FieldTotalDistance, round(avg*1000/60*t, 0))
		}
	}

	dist, hasDist := r.get(telemetry.FieldTotalDistance)
	if !hasDist {
		return
	}
	if !hasT {
		switch {
		case hasDPM && dpm > 0:
			r.fill(telemetry.FieldDurationMinutes, round(dist/dpm, 2))
		case hasAvg && avg > 0:
			r.fill(telemetry.FieldDurationMinutes, round(dist/(avg*1000/60), 2))
		}
	}

	if t, ok := r.get(telemetry.FieldDurationMinutes); ok && t > 0 {
		r.fill(telemetry.FieldDistancePerMin, round(dist/t, 2))
		r.fill(telemetry.FieldAvgSpeed, round(dist/1000/(t/60), 2))
	}
}

func (r *row) deriveIntensity(dist float64) {
	p := r.profile
	t, _ := r.get(telemetry.FieldDurationMinutes)

	if !r.has(telemetry.FieldAvgMetabolicPower) {
		base := p.MetabolicPower.For(r.role, r.match)
		r.fill(telemetry.FieldAvgMetabolicPower, round(base+r.jitter(p.Jitter.MetabolicPower), 2))
	}
	pmm, _ := r.get(telemetry.FieldAvgMetabolicPower)

	r.deriveSpeedZones(dist)
	r.deriveAccelerations(dist, t)

	if !r.has(telemetry.FieldDistanceOver20WKg) {
		r.fill(telemetry.FieldDistanceOver20WKg, round(dist*p.Over20WKgShare.For(r.match), 0))
	}
	if d20w, ok := r.get(telemetry.FieldDistanceOver20WKg); ok {
		r.fill(telemetry.FieldDistanceOver35WKg, round(d20w*p.Over35WKgShare, 0))
	}

	r.deriveEquivalent(dist, pmm)
	r.deriveIntensityTime(t, pmm)

	r.fill(telemetry.FieldTopSpeed, p.TopSpeed.For(r.role, r.match))
	r.fill(telemetry.FieldMaxPower5s, round(p.MaxPower5s.Range.Clamp(pmm*p.MaxPower5s.Factor), 2))

	over20, _ := r.get(telemetry.FieldDistanceOver20)
	over25, _ := r.get(telemetry.FieldDistanceOver25)
	nAcc, _ := r.get(telemetry.FieldNumAccOver3)
	nDec, _ := r.get(telemetry.FieldNumDecOver3)
	density := safeDiv(nAcc+nDec, t)

	tl := p.TrainingLoad
	r.fill(telemetry.FieldTrainingLoad, round(dist*(1+tl.K1*safeDiv(over20, dist)+tl.K2*density), 0))

	rvp := p.RVP
	score := rvp.Base + rvp.HSR*safeDiv(over20, dist) + rvp.Power*pmm + rvp.Sprint*safeDiv(over25, dist) + rvp.Density*density
	r.fill(telemetry.FieldRVPIndex, round(rvp.Range.Clamp(score), 0))
}

func (r *row) deriveSpeedZones(dist float64) {
	p := r.profile

	over20, hasOver20 := r.get(telemetry.FieldDistanceOver20)
	over15, hasOver15 := r.get(telemetry.FieldDistanceOver15)
	if z, ok := r.get(telemetry.FieldDistance20To25); ok && hasOver20 {
		r.fill(telemetry.FieldDistanceOver25, math.Max(over20-z, 0))
	}
	if z, ok := r.get(telemetry.FieldDistanceOver25); ok && hasOver20 {
		r.fill(telemetry.FieldDistance20To25, math.Max(over20-z, 0))
	}
	if hasOver15 && hasOver20 {
		r.fill(telemetry.FieldDistance15To20, math.Max(over15-over20, 0))
	}

	if !r.has(telemetry.FieldDistance15To20) || !r.has(telemetry.FieldDistance20To25) || !r.has(telemetry.FieldDistanceOver25) {
		share := math.Max(p.HSRShare.For(r.role, r.match)+r.jitter(p.Jitter.HSRShare), 0)
		hsr := round(dist*share, 0)
		r.fill(telemetry.FieldDistance15To20, round(hsr*p.HSRSplit.Z15To20, 0))
		r.fill(telemetry.FieldDistance20To25, round(hsr*p.HSRSplit.Z20To25, 0))
		r.fill(telemetry.FieldDistanceOver25, round(hsr*p.HSRSplit.Over25, 0))
	}

	r.fitZones(dist, true)
}

var speedZones = [...]telemetry.Field{
	telemetry.FieldDistance15To20,
	telemetry.FieldDistance20To25,
	telemetry.FieldDistanceOver25,
}

// fitZones keeps the speed zones within the total distance, scaling them
// down proportionally and rounding down, and keeps the >20 and >15
// aggregates equal to the zones they cover. Values must be non-negative.
func (r *row) fitZones(dist float64, hasDist bool) {
	var sum float64
	complete := true
	for _, f := range speedZones {
		v, ok := r.get(f)
		if !ok {
			complete = false
			continue
		}
		sum += v
	}

	rescaled := hasDist && sum > dist
	if rescaled {
		scale := safeDiv(dist, sum)
		for _, f := range speedZones {
			if v, ok := r.get(f); ok {
				r.overwrite(f, math.Floor(v*scale))
			}
		}
	}

	if complete {
		z1 := r.values[telemetry.FieldDistance15To20]
		z2 := r.values[telemetry.FieldDistance20To25]
		z3 := r.values[telemetry.FieldDistanceOver25]
		if rescaled {
			r.overwrite(telemetry.FieldDistanceOver20, z2+z3)
			r.overwrite(telemetry.FieldDistanceOver15, z1+z2+z3)
		} else {
			r.fill(telemetry.FieldDistanceOver20, z2+z3)
			r.fill(telemetry.FieldDistanceOver15, z1+z2+z3)
		}
	}

	if !hasDist {
		return
	}
	for _, f := range [...]telemetry.Field{telemetry.FieldDistanceOver20, telemetry.FieldDistanceOver15} {
		if v, ok := r.get(f); ok && v > dist {
			r.overwrite(f, math.Floor(dist))
		}
	}
}

func (r *row) deriveAccelerations(dist, t float64) {
	p := r.profile

	if pct, ok := r.get(telemetry.FieldPctDistanceAcc2); ok {
		r.fill(telemetry.FieldDistanceAccOver2, round(dist*pct/100, 0))
	}
	if pct, ok := r.get(telemetry.FieldPctDistanceDec2); ok {
		r.fill(telemetry.FieldDistanceDecOver2, round(dist*pct/100, 0))
	}
	r.fill(telemetry.FieldDistanceAccOver2, round(dist*p.AccDecShare, 0))
	r.fill(telemetry.FieldDistanceDecOver2, round(dist*p.AccDecShare, 0))

	acc2 := r.values[telemetry.FieldDistanceAccOver2]
	dec2 := r.values[telemetry.FieldDistanceDecOver2]
	r.fill(telemetry.FieldPctDistanceAcc2, round(safeDiv(acc2, dist)*100, 2))
	r.fill(telemetry.FieldPctDistanceDec2, round(safeDiv(dec2, dist)*100, 2))
	if t > 0 {
		r.fill(telemetry.FieldAccEventsPerMin2, round(acc2/t, 3))
		r.fill(telemetry.FieldDecEventsPerMin2, round(dec2/t, 3))
	}

	events := round(p.EventsPer9000m.For(r.match)*dist/9000, 0)
	r.fill(telemetry.FieldNumAccOver3, events)
	r.fill(telemetry.FieldNumDecOver3, events)
	r.fill(telemetry.FieldDistanceAccOver3, round(r.values[telemetry.FieldNumAccOver3]*p.MetersPerEvent, 0))
	r.fill(telemetry.FieldDistanceDecOver3, round(r.values[telemetry.FieldNumDecOver3]*p.MetersPerEvent, 0))
}

func (r *row) deriveEquivalent(dist, pmm float64) {
	eq := r.profile.Equivalent

	if pct, ok := r.get(telemetry.FieldEquivalentDistancePct); ok {
		r.fill(telemetry.FieldEquivalentDistance, round(dist*pct/100, 0))
	}
	if !r.has(telemetry.FieldEquivalentDistance) {
		accShare := safeDiv(r.values[telemetry.FieldDistanceAccOver2], dist)
		over35Share := safeDiv(r.values[telemetry.FieldDistanceOver35WKg], dist)
		multiplier := eq.Multiplier.Clamp(1 + eq.A*(pmm-eq.Baseline)/10 + eq.B*accShare + eq.C*over35Share)
		r.fill(telemetry.FieldEquivalentDistance, round(dist*multiplier, 0))
	}
	r.fill(telemetry.FieldEquivalentDistancePct, round(safeDiv(r.values[telemetry.FieldEquivalentDistance], dist)*100, 2))
}

func (r *row) deriveIntensityTime(t, pmm float64) {
	if t <= 0 || (r.has(telemetry.FieldTimeUnder5WKg) && r.has(telemetry.FieldTime5To10WKg)) {
		return
	}
	ip := r.profile.Intensity
	high := Bounds{Min: ip.HighFloor, Max: ip.HighCeiling.For(r.match)}.Clamp((pmm - ip.PowerOffset) / ip.PowerDivisor)
	tHigh := round(t*high, 0)
	tMid := math.Max(round(t*(ip.Bias.For(r.match)-high), 0), 0)
	tLow := math.Max(t-tHigh-tMid, 0)
	r.fill(telemetry.FieldTimeUnder5WKg, tLow)
	r.fill(telemetry.FieldTime5To10WKg, tMid)
}

func (r *row) clampNegative() {
	for f, v := range r.values {
		if v < 0 {
			r.overwrite(f, 0)
		}
	}
}

func safeDiv(n, d float64) float64 {
	if d <= 0 {
		return 0
	}
	return n / d
}

func round(v float64, decimals int) float64 {
	pow := math.Pow10(decimals)
	return math.Round(v*pow) / pow
}
