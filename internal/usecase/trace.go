package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var importTracer = otel.Tracer("github.com/riskibarqy/perf-import/internal/usecase")

const (
	attrTeamID       = attribute.Key("perf_import.team_id")
	attrHeaderCount  = attribute.Key("perf_import.header_count")
	attrRowCount     = attribute.Key("perf_import.row_count")
	attrMappingCount = attribute.Key("perf_import.mapping_count")
	attrDryRun       = attribute.Key("perf_import.dry_run")
)

// startUsecaseSpan opens a child span tagged with the team being imported
// for. Without a recording parent no span is created.
func startUsecaseSpan(ctx context.Context, name, teamID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if name == "" || !parent.SpanContext().IsValid() {
		return ctx, noop.Span{}
	}
	attrs = append(attrs, attrTeamID.String(strings.TrimSpace(teamID)))
	return importTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
