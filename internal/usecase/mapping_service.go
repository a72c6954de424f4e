package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/header"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
)

type MappingMode string

const (
	MappingModeExactTemplate   MappingMode = "exact_template"
	MappingModeFuzzyTemplate   MappingMode = "fuzzy_template"
	MappingModePatternFallback MappingMode = "pattern_fallback"
)

type AutoMappingInput struct {
	TeamID  string
	Headers []string
	// CaptureCustom keeps unrecognized headers as custom.<header> extras.
	CaptureCustom bool
}

type MappingStatistics struct {
	TotalHeaders    int               `json:"total_headers"`
	MappedHeaders   int               `json:"mapped_headers"`
	UnmappedHeaders int               `json:"unmapped_headers"`
	MissingRequired []telemetry.Field `json:"missing_required"`
}

type AutoMappingResult struct {
	Mode         MappingMode              `json:"mode"`
	Confidence   int                      `json:"confidence"`
	Mapping      []telemetry.FieldMapping `json:"mapping"`
	Fingerprint  string                   `json:"fingerprint"`
	Similarity   float64                  `json:"similarity,omitempty"`
	Unrecognized []string                 `json:"unrecognized"`
	Warnings     []string                 `json:"warnings"`
	Statistics   MappingStatistics        `json:"statistics"`
}

// MappingService suggests a header mapping: a stored template for the same
// layout, then the closest stored template, then the pattern classifier.
type MappingService struct {
	templates  *TemplateService
	classifier *header.Classifier
	logger     *logging.Logger
}

func NewMappingService(templates *TemplateService, classifier *header.Classifier, logger *logging.Logger) *MappingService {
	if classifier == nil {
		classifier = header.NewClassifier(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MappingService{templates: templates, classifier: classifier, logger: logger}
}

func (s *MappingService) GenerateAutoMapping(ctx context.Context, input AutoMappingInput) (AutoMappingResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MappingService.GenerateAutoMapping", input.TeamID,
		attrHeaderCount.Int(len(input.Headers)),
	)
	defer span.End()

	teamID, err := cleanTeamID(input.TeamID)
	if err != nil {
		return AutoMappingResult{}, err
	}
	headers := cleanHeaders(input.Headers)
	if len(headers) == 0 {
		return AutoMappingResult{}, fmt.Errorf("%w: headers are required", ErrInvalidInput)
	}

	result := AutoMappingResult{Fingerprint: header.Fingerprint(headers)}

	tpl, ok, err := s.templates.GetExact(ctx, teamID, headers)
	switch {
	case err != nil && crerr.Is(err, ErrStoreUnavailable):
		s.logger.WarnContext(ctx, "template store unavailable, using pattern classifier", "team_id", teamID, "error", err)
		result.Warnings = append(result.Warnings, "template store unavailable, mapping built from header patterns")
		return s.patternFallback(headers, input.CaptureCustom, result), nil
	case err != nil:
		return AutoMappingResult{}, crerr.Wrap(err, "lookup exact template")
	case ok:
		result.Mode = MappingModeExactTemplate
		result.Confidence = 100
		result.Similarity = 1
		s.logger.DebugContext(ctx, "exact template matched", "team_id", teamID, "fingerprint", result.Fingerprint)
		return s.fromTemplate(headers, tpl, input.CaptureCustom, result), nil
	}

	match, ok, err := s.templates.FindBestFuzzy(ctx, teamID, headers, 0)
	switch {
	case err != nil && crerr.Is(err, ErrStoreUnavailable):
		s.logger.WarnContext(ctx, "template index unavailable, using pattern classifier", "team_id", teamID, "error", err)
		result.Warnings = append(result.Warnings, "template store unavailable, mapping built from header patterns")
	case err != nil:
		return AutoMappingResult{}, crerr.Wrap(err, "lookup fuzzy template")
	case ok:
		result.Mode = MappingModeFuzzyTemplate
		result.Similarity = match.Similarity
		result.Confidence = int(math.Round(match.Similarity * 100))
		result.Warnings = append(result.Warnings, fmt.Sprintf("template matched at similarity %d%%", result.Confidence))
		s.logger.DebugContext(ctx, "fuzzy template matched",
			"team_id", teamID,
			"fingerprint", match.Template.Fingerprint,
			"similarity", match.Similarity,
		)
		return s.fromTemplate(headers, match.Template, input.CaptureCustom, result), nil
	}

	return s.patternFallback(headers, input.CaptureCustom, result), nil
}

func (s *MappingService) patternFallback(headers []string, captureCustom bool, result AutoMappingResult) AutoMappingResult {
	classified := s.classifier.ClassifyAll(headers, header.Options{CaptureCustom: captureCustom})
	result.Mode = MappingModePatternFallback
	result.Confidence = classified.AverageConfidence
	result.Mapping = classified.Mappings
	result.Unrecognized = classified.Unrecognized
	result.Warnings = append(result.Warnings, classified.Warnings...)
	result.Statistics = mappingStatistics(headers, result.Mapping)
	return result
}

// fromTemplate re-targets the template onto the submitted header spelling.
// Headers the template does not know are classified by pattern.
func (s *MappingService) fromTemplate(headers []string, tpl telemetry.MappingTemplate, captureCustom bool, result AutoMappingResult) AutoMappingResult {
	byNormalized := make(map[string]string, len(headers))
	for _, h := range headers {
		byNormalized[header.Normalize(h)] = h
	}

	covered := make(map[string]struct{}, len(tpl.Mapping))
	mapping := make([]telemetry.FieldMapping, 0, len(headers))
	for _, m := range tpl.Mapping {
		norm := header.Normalize(m.SourceHeader)
		source, ok := byNormalized[norm]
		if !ok {
			continue
		}
		if _, dup := covered[norm]; dup {
			continue
		}
		covered[norm] = struct{}{}
		m.SourceHeader = source
		mapping = append(mapping, m)
	}

	rest := make([]string, 0)
	for _, h := range headers {
		if _, ok := covered[header.Normalize(h)]; !ok {
			rest = append(rest, h)
		}
	}
	if len(rest) > 0 {
		classified := s.classifier.ClassifyAll(rest, header.Options{CaptureCustom: captureCustom})
		mapping = append(mapping, classified.Mappings...)
		result.Unrecognized = classified.Unrecognized
		for _, h := range classified.Unrecognized {
			result.Warnings = append(result.Warnings, fmt.Sprintf("header %q not recognized automatically", h))
		}
	}

	result.Mapping = mapping
	result.Statistics = mappingStatistics(headers, mapping)
	for _, f := range result.Statistics.MissingRequired {
		result.Warnings = append(result.Warnings, fmt.Sprintf("required field %q not found in headers", f))
	}
	return result
}

func mappingStatistics(headers []string, mapping []telemetry.FieldMapping) MappingStatistics {
	stats := MappingStatistics{TotalHeaders: len(headers)}
	covered := make(map[telemetry.Field]struct{}, len(mapping))
	for _, m := range mapping {
		covered[m.CanonicalField] = struct{}{}
		if !m.CanonicalField.IsCustom() {
			stats.MappedHeaders++
		}
	}
	stats.UnmappedHeaders = stats.TotalHeaders - stats.MappedHeaders
	for _, f := range telemetry.RequiredFields {
		if _, ok := covered[f]; !ok {
			stats.MissingRequired = append(stats.MissingRequired, f)
		}
	}
	return stats
}

func cleanHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		h = header.CleanHeader(h)
		if strings.TrimSpace(h) == "" {
			continue
		}
		out = append(out, h)
	}
	return out
}
