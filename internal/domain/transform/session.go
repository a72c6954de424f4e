package transform

import (
	"strings"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var sessionTypeVocabulary = map[string]string{
	"allenamento": telemetry.SessionTypeTraining,
	"training":    telemetry.SessionTypeTraining,
	"workout":     telemetry.SessionTypeTraining,
	"practice":    telemetry.SessionTypeTraining,
	"partita":     telemetry.SessionTypeMatch,
	"match":       telemetry.SessionTypeMatch,
	"game":        telemetry.SessionTypeMatch,
}

// NormalizeSessionType maps known vocabulary onto Training or Match and
// title-cases anything else.
func NormalizeSessionType(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ""
	}
	if mapped, ok := sessionTypeVocabulary[v]; ok {
		return mapped
	}
	// Casers carry state, so one is built per call.
	return cases.Title(language.Und).String(v)
}

var boolVocabulary = map[string]bool{
	"yes":         true,
	"y":           true,
	"true":        true,
	"1":           true,
	"si":          true,
	"sì":          true,
	"match":       true,
	"partita":     true,
	"no":          false,
	"n":           false,
	"false":       false,
	"0":           false,
	"training":    false,
	"allenamento": false,
}

// ParseBool reads a match flag in Italian or English.
func ParseBool(raw string) (bool, error) {
	v, ok := boolVocabulary[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return false, newError(telemetry.TransformBoolean, raw, "not a boolean")
	}
	return v, nil
}
