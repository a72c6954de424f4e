package httpapi

import (
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"github.com/riskibarqy/perf-import/internal/usecase"
)

type autoMappingRequest struct {
	TeamID        string   `json:"team_id" validate:"required,max=128"`
	Headers       []string `json:"headers" validate:"required,min=1,max=500"`
	CaptureCustom bool     `json:"capture_custom"`
}

type applyMappingRequest struct {
	TeamID  string                   `json:"team_id" validate:"required,max=128"`
	Rows    []telemetry.RawRow       `json:"rows" validate:"required"`
	Mapping []telemetry.FieldMapping `json:"mapping" validate:"required,min=1,dive"`
	Headers []string                 `json:"headers" validate:"omitempty,max=500"`
	Vendor  string                   `json:"vendor" validate:"omitempty,max=100"`
	DryRun  bool                     `json:"dry_run"`
}

type previewRequest struct {
	TeamID     string                   `json:"team_id" validate:"required,max=128"`
	Rows       []telemetry.RawRow       `json:"rows" validate:"required"`
	Mapping    []telemetry.FieldMapping `json:"mapping" validate:"required,min=1,dive"`
	SampleSize int                      `json:"sample_size" validate:"omitempty,gte=1,lte=100"`
}

type resolvePlayersRequest struct {
	TeamID string   `json:"team_id" validate:"required,max=128"`
	Tokens []string `json:"tokens" validate:"required,min=1,max=500,dive,required"`
}

type resolvePlayersResponse struct {
	Results []usecase.ResolveResult `json:"results"`
	Session usecase.SessionStats    `json:"session"`
}

type saveTemplateRequest struct {
	Name    string                   `json:"name" validate:"required,max=100"`
	Mapping []telemetry.FieldMapping `json:"mapping" validate:"required,min=1,dive"`
	Vendor  string                   `json:"vendor" validate:"omitempty,max=100"`
}

type teamTemplatesResponse struct {
	TeamID  string                      `json:"team_id"`
	Named   []telemetry.MappingTemplate `json:"named"`
	Learned []telemetry.MappingTemplate `json:"learned"`
}

type clearCacheResponse struct {
	TeamID  string `json:"team_id"`
	Deleted int    `json:"deleted"`
}

type healthResponse struct {
	Status      string                     `json:"status"`
	Store       string                     `json:"store"`
	RosterCache usecase.ResolverCacheStats `json:"roster_cache"`
}
