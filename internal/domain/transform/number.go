package transform

import (
	"math"
	"strconv"
	"strings"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

const (
	floatPlausibleMax = 100000
	intPlausibleMax   = 1000000
)

// Observer is told about values that parsed but look implausible.
type Observer interface {
	Implausible(field telemetry.Field, raw string, value float64)
}

type ObserverFunc func(field telemetry.Field, raw string, value float64)

func (f ObserverFunc) Implausible(field telemetry.Field, raw string, value float64) {
	f(field, raw, value)
}

// ParseFloat reads a locale formatted decimal. A lone comma is the decimal
// separator; when both '.' and ',' appear the last one is.
func ParseFloat(raw string) (float64, error) {
	v, ok := parseLocale(raw)
	if !ok {
		return 0, newError(telemetry.TransformParseFloat, raw, "not a number")
	}
	return v, nil
}

// ParseInt reads a locale formatted number and truncates any fraction.
func ParseInt(raw string) (int64, error) {
	v, ok := parseLocale(raw)
	if !ok {
		return 0, newError(telemetry.TransformParseInt, raw, "not an integer")
	}
	return int64(math.Trunc(v)), nil
}

// KmToMeters reads a locale formatted kilometre value.
func KmToMeters(raw string) (float64, error) {
	v, ok := parseLocale(raw)
	if !ok {
		return 0, newError(telemetry.TransformKmToMeters, raw, "not a distance in km")
	}
	return v * 1000, nil
}

// FloatPlausible reports whether v lies in the expected float magnitude range.
func FloatPlausible(v float64) bool {
	return v >= 0 && v <= floatPlausibleMax
}

func IntPlausible(v int64) bool {
	return v >= 0 && v <= intPlausibleMax
}

func parseLocale(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "").Replace(s)
	if s == "" {
		return 0, false
	}

	dot := strings.LastIndexByte(s, '.')
	comma := strings.LastIndexByte(s, ',')
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, false
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
