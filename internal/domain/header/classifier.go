package header

import (
	"fmt"
	"math"

	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
)

// CustomConfidence is assigned to headers captured into a custom.* bucket.
const CustomConfidence = 50

// Classifier assigns canonical fields to headers using an ordered rule table.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

var defaultClassifier = NewClassifier(DefaultRules())

// Classify runs header through the default rule table.
func Classify(raw string) (telemetry.FieldMapping, bool) {
	return defaultClassifier.Classify(raw)
}

func (c *Classifier) Classify(raw string) (telemetry.FieldMapping, bool) {
	cleaned := CleanHeader(raw)
	if cleaned == "" {
		return telemetry.FieldMapping{}, false
	}
	p := newSubject(cleaned)
	for _, rule := range c.rules {
		if !rule.Matches(p) {
			continue
		}
		target, ok := rule.Resolve(p)
		if !ok {
			continue
		}
		return telemetry.FieldMapping{
			SourceHeader:   cleaned,
			CanonicalField: target.Field,
			Transform:      target.Transform,
			Confidence:     rule.Confidence,
			Required:       target.Required,
			SemanticType:   target.SemanticType,
			Description:    target.Description,
		}, true
	}
	return telemetry.FieldMapping{}, false
}

type Options struct {
	// CaptureCustom maps unrecognized headers to custom.<normalized header>.
	CaptureCustom bool
}

// Result is the outcome of classifying a full header row.
type Result struct {
	Mappings        []telemetry.FieldMapping
	Unrecognized    []string
	MissingRequired []telemetry.Field
	Warnings        []string
	// AverageConfidence is the rounded mean over recognized headers only.
	AverageConfidence int
}

func (c *Classifier) ClassifyAll(headers []string, opts Options) Result {
	res := Result{Mappings: make([]telemetry.FieldMapping, 0, len(headers))}
	covered := make(map[telemetry.Field]struct{}, len(headers))
	total := 0
	recognized := 0

	for _, raw := range headers {
		m, ok := c.Classify(raw)
		if ok {
			res.Mappings = append(res.Mappings, m)
			covered[m.CanonicalField] = struct{}{}
			total += m.Confidence
			recognized++
			continue
		}

		cleaned := CleanHeader(raw)
		res.Unrecognized = append(res.Unrecognized, cleaned)
		res.Warnings = append(res.Warnings, fmt.Sprintf("header %q not recognized automatically", cleaned))
		if opts.CaptureCustom && Normalize(cleaned) != "" {
			res.Mappings = append(res.Mappings, telemetry.FieldMapping{
				SourceHeader:   cleaned,
				CanonicalField: telemetry.CustomField(Normalize(cleaned)),
				Transform:      telemetry.TransformString,
				Confidence:     CustomConfidence,
				SemanticType:   "custom",
				Description:    "Unrecognized column kept as extra",
			})
		}
	}

	for _, required := range telemetry.RequiredFields {
		if _, ok := covered[required]; ok {
			continue
		}
		res.MissingRequired = append(res.MissingRequired, required)
		res.Warnings = append(res.Warnings, fmt.Sprintf("required field %q not found in headers", required))
	}

	if recognized > 0 {
		res.AverageConfidence = int(math.Round(float64(total) / float64(recognized)))
	}
	return res
}
