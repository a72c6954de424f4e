package transform

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

var (
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	epochPattern       = regexp.MustCompile(`^\d+$`)
)

const (
	epochFloor  = 1_000_000_000
	epochMillis = 1_000_000_000_000
)

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	time.RFC1123,
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// SmartDate parses a session date. Formats are tried in a fixed order so
// that ambiguous numeric dates are read day first:
// ISO, DD/MM/YYYY, MM/DD/YYYY, Unix epoch, then a few textual layouts.
// The result is always UTC.
func SmartDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, newError(telemetry.TransformSmartDate, raw, "empty date")
	}

	if isoDatePattern.MatchString(s) {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return t.UTC(), nil
		}
	}

	if m := numericDatePattern.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := calendarDate(year, b, a); ok {
			return t, nil
		}
		if t, ok := calendarDate(year, a, b); ok {
			return t, nil
		}
	}

	if epochPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > epochFloor {
			if n < epochMillis {
				return time.Unix(n, 0).UTC(), nil
			}
			return time.UnixMilli(n).UTC(), nil
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newError(telemetry.TransformSmartDate, raw, "unrecognized date format")
}

// calendarDate builds a date the way a lenient calendar would, rolling over
// out of range days and months, and accepts it only while the literal year
// survives the normalization.
func calendarDate(year, month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || month < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}
