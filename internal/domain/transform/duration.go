package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

var (
	minutesPattern     = regexp.MustCompile(`^\d+$`)
	decimalPattern     = regexp.MustCompile(`^\d+[.,]\d+$`)
	hhmmssPattern      = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})$`)
	hhmmPattern        = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	hoursTextPattern   = regexp.MustCompile(`(?i)^(\d+)\s*h(?:ours?|rs?)?\s*(?:(\d+)\s*m(?:in(?:utes?|s)?)?)?$`)
	minutesTextPattern = regexp.MustCompile(`(?i)^(\d+)\s*m(?:in(?:utes?|s)?)?$`)
)

// DurationToMinutes converts a session duration into minutes.
func DurationToMinutes(raw string) (float64, error) {
	s := strings.TrimSpace(raw)

	switch {
	case minutesPattern.MatchString(s):
		n, _ := strconv.Atoi(s)
		return float64(n), nil
	case decimalPattern.MatchString(s):
		v, _ := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		return v, nil
	}

	if m := hhmmssPattern.FindStringSubmatch(s); m != nil {
		h, mm, sec := atoi(m[1]), atoi(m[2]), atoi(m[3])
		total := float64(h*60+mm) + float64(sec)/60
		return math.Round(total*100) / 100, nil
	}
	if m := hhmmPattern.FindStringSubmatch(s); m != nil {
		return float64(atoi(m[1])*60 + atoi(m[2])), nil
	}
	if m := hoursTextPattern.FindStringSubmatch(s); m != nil {
		return float64(atoi(m[1])*60 + atoi(m[2])), nil
	}
	if m := minutesTextPattern.FindStringSubmatch(s); m != nil {
		return float64(atoi(m[1])), nil
	}
	return 0, newError(telemetry.TransformDurationToMinutes, raw, "unrecognized duration format")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
