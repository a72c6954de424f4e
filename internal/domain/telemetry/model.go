package telemetry

import (
	"math"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Transform names the value coercion applied to a mapped column.
type Transform string

const (
	TransformSmartDate            Transform = "smartDate"
	TransformDurationToMinutes    Transform = "durationToMinutes"
	TransformKmToMeters           Transform = "kmToMeters"
	TransformParseFloat           Transform = "parseFloat"
	TransformParseInt             Transform = "parseInt"
	TransformNormalizeSessionType Transform = "normalizeSessionType"
	TransformPlayerLookup         Transform = "playerLookup"
	TransformString               Transform = "string"
	TransformBoolean              Transform = "boolean"
	TransformPassthrough          Transform = "passthrough"
)

// FieldMapping binds one source header to a canonical field.
type FieldMapping struct {
	SourceHeader   string    `json:"source_header" yaml:"source_header" validate:"required"`
	CanonicalField Field     `json:"canonical_field" yaml:"canonical_field" validate:"required"`
	Transform      Transform `json:"transform" yaml:"transform"`
	Confidence     int       `json:"confidence" yaml:"confidence" validate:"gte=0,lte=100"`
	Required       bool      `json:"required" yaml:"required"`
	SemanticType   string    `json:"semantic_type,omitempty" yaml:"semantic_type,omitempty"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
}

var mappingValidator = validator.New()

func (m FieldMapping) Validate() error {
	if err := mappingValidator.Struct(m); err != nil {
		return crerr.Wrapf(err, "invalid mapping for header %q", m.SourceHeader)
	}
	return nil
}

// ValidateMappings rejects an empty mapping or any entry that fails Validate.
func ValidateMappings(mapping []FieldMapping) error {
	if len(mapping) == 0 {
		return crerr.New("mapping is empty")
	}
	for _, m := range mapping {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TemplateMeta carries optional provenance for a saved template.
type TemplateMeta struct {
	Vendor string `json:"vendor,omitempty"`
	Source string `json:"source,omitempty"`
}

// MappingTemplate is a team-scoped mapping learned for a header layout.
type MappingTemplate struct {
	Version           string         `json:"version"`
	Name              string         `json:"name,omitempty"`
	TeamID            string         `json:"team_id"`
	Fingerprint       string         `json:"fingerprint,omitempty"`
	HeadersNormalized []string       `json:"headers_normalized,omitempty"`
	Mapping           []FieldMapping `json:"mapping"`
	Meta              TemplateMeta   `json:"meta"`
	SavedAt           time.Time      `json:"saved_at"`
}

// RawRow is one decoded CSV row keyed by source header.
type RawRow map[string]string

// ImputationFlags marks fields whose value was derived rather than supplied.
type ImputationFlags map[Field]bool

// Record is a normalized, typed telemetry row ready for persistence.
type Record struct {
	TeamID      string            `json:"team_id"`
	PlayerID    string            `json:"player_id"`
	PlayerName  string            `json:"player_name,omitempty"`
	SessionDate time.Time         `json:"session_date"`
	SessionType string            `json:"session_type,omitempty"`
	SessionName string            `json:"session_name,omitempty"`
	SessionDay  string            `json:"session_day,omitempty"`
	DrillName   string            `json:"drill_name,omitempty"`
	Position    string            `json:"position,omitempty"`
	IsMatch     *bool             `json:"is_match,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Metrics     map[Field]float64 `json:"metrics"`
	Extras      map[string]string `json:"extras,omitempty"`
	Imputed     ImputationFlags   `json:"imputed,omitempty"`
}

// MatchSession reports whether the row describes a competitive match.
func (r Record) MatchSession() bool {
	if r.IsMatch != nil {
		return *r.IsMatch
	}
	return r.SessionType == SessionTypeMatch
}

const (
	SessionTypeTraining = "Training"
	SessionTypeMatch    = "Match"
)

// RowError describes why a row was excluded from the import data.
type RowError struct {
	RowIndex int      `json:"row_index"`
	RawRow   RawRow   `json:"raw_row"`
	Errors   []string `json:"errors"`
	Fields   []Field  `json:"fields,omitempty"`
}

type ImportStats struct {
	TotalRows        int `json:"total_rows"`
	SuccessRows      int `json:"success_rows"`
	ErrorRows        int `json:"error_rows"`
	SuccessRate      int `json:"success_rate"`
	PlayersNotFound  int `json:"players_not_found"`
	PlayersAmbiguous int `json:"players_ambiguous"`
	DatesInvalid     int `json:"dates_invalid"`
}

// SuccessRate returns successRows/totalRows*100 rounded, 0 for an empty batch.
func SuccessRate(successRows, totalRows int) int {
	if totalRows <= 0 {
		return 0
	}
	return int(math.Round(float64(successRows) / float64(totalRows) * 100))
}

type ImportResult struct {
	BatchID       string      `json:"batch_id"`
	Data          []Record    `json:"data"`
	Errors        []RowError  `json:"errors"`
	Warnings      []string    `json:"warnings"`
	Stats         ImportStats `json:"stats"`
	TemplateSaved bool        `json:"template_saved"`
	Cancelled     bool        `json:"cancelled,omitempty"`
}
