package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/perf-import/internal/domain/header"
	"github.com/riskibarqy/perf-import/internal/domain/imputation"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"github.com/riskibarqy/perf-import/internal/domain/transform"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/sourcegraph/conc/panics"
)

const (
	defaultImportWorkers   = 4
	defaultAutosaveMinRate = 80
	defaultPreviewSize     = 5
	maxListedTokens        = 3

	templateSourceCSVImport = "CSV Import"
)

type ImportConfig struct {
	Workers         int
	AutosaveMinRate int
	PreviewSize     int
}

type ApplyOptions struct {
	// Headers is the full CSV header row. When empty the union of row keys is used.
	Headers []string
	Vendor  string
	// DryRun processes rows without persisting the mapping as a template.
	DryRun bool
}

type PreviewResult struct {
	Result      telemetry.ImportResult `json:"result"`
	SampledRows int                    `json:"sampled_rows"`
	TotalRows   int                    `json:"total_rows"`
}

// ImportService applies an accepted mapping to decoded CSV rows.
type ImportService struct {
	templates *TemplateService
	resolver  *PlayerResolver
	engine    *imputation.Engine
	cfg       ImportConfig
	logger    *logging.Logger
	newID     func() string
}

func NewImportService(
	templates *TemplateService,
	resolver *PlayerResolver,
	engine *imputation.Engine,
	cfg ImportConfig,
	logger *logging.Logger,
) *ImportService {
	if logger == nil {
		logger = logging.Default()
	}
	if engine == nil {
		engine = imputation.NewEngine(imputation.DefaultProfiles(), 0)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultImportWorkers
	}
	if cfg.AutosaveMinRate <= 0 || cfg.AutosaveMinRate > 100 {
		cfg.AutosaveMinRate = defaultAutosaveMinRate
	}
	if cfg.PreviewSize <= 0 {
		cfg.PreviewSize = defaultPreviewSize
	}

	return &ImportService{
		templates: templates,
		resolver:  resolver,
		engine:    engine,
		cfg:       cfg,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Preview runs the first sampleSize rows through the full pipeline without
// saving anything.
func (s *ImportService) Preview(
	ctx context.Context,
	rows []telemetry.RawRow,
	mapping []telemetry.FieldMapping,
	teamID string,
	sampleSize int,
) (PreviewResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.Preview", teamID,
		attrRowCount.Int(len(rows)),
		attrMappingCount.Int(len(mapping)),
	)
	defer span.End()

	if sampleSize <= 0 {
		sampleSize = s.cfg.PreviewSize
	}
	sample := rows
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	result, err := s.ApplyMapping(ctx, sample, mapping, teamID, ApplyOptions{DryRun: true, Headers: rowHeaders(rows)})
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Result: result, SampledRows: len(sample), TotalRows: len(rows)}, nil
}

// ApplyMapping transforms every row, resolves players, imputes missing
// metrics and, when enough rows succeed, stores the mapping as a template.
// Row level problems are reported in the result; an error is returned only
// for structural failures.
func (s *ImportService) ApplyMapping(
	ctx context.Context,
	rows []telemetry.RawRow,
	mapping []telemetry.FieldMapping,
	teamID string,
	opts ApplyOptions,
) (telemetry.ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.ApplyMapping", teamID,
		attrRowCount.Int(len(rows)),
		attrMappingCount.Int(len(mapping)),
		attrDryRun.Bool(opts.DryRun),
	)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return telemetry.ImportResult{}, err
	}
	mapping, err = cleanMapping(mapping)
	if err != nil {
		return telemetry.ImportResult{}, err
	}

	batchID := s.newID()
	ctx = logging.WithImport(ctx, teamID, batchID)

	batch := s.newBatch(teamID, mapping)
	outcomes, processed, cancelled, err := s.processRows(ctx, batch, rows)
	if err != nil {
		return telemetry.ImportResult{}, err
	}

	result := batch.aggregate(outcomes, processed)
	result.BatchID = batchID
	result.Cancelled = cancelled

	if cancelled {
		s.logger.WarnContext(ctx, "import cancelled, returning partial result",
			"processed_rows", processed,
			"total_rows", len(rows),
		)
	} else if !opts.DryRun && result.Stats.TotalRows > 0 && result.Stats.SuccessRate >= s.cfg.AutosaveMinRate {
		headers := opts.Headers
		if len(headers) == 0 {
			headers = rowHeaders(rows)
		}
		result.TemplateSaved = s.autosave(ctx, batch, teamID, headers, mapping, opts.Vendor)
	}

	if batch.degraded() {
		result.Warnings = append(result.Warnings, "template store unavailable, results were computed without cache")
	}

	s.logger.InfoContext(ctx, "import batch processed",
		"total_rows", result.Stats.TotalRows,
		"success_rows", result.Stats.SuccessRows,
		"success_rate", result.Stats.SuccessRate,
		"template_saved", result.TemplateSaved,
		"dry_run", opts.DryRun,
	)
	return result, nil
}

func (s *ImportService) autosave(
	ctx context.Context,
	batch *importBatch,
	teamID string,
	headers []string,
	mapping []telemetry.FieldMapping,
	vendor string,
) bool {
	if s.templates == nil {
		return false
	}

	meta := telemetry.TemplateMeta{Vendor: strings.TrimSpace(vendor), Source: templateSourceCSVImport}
	if _, err := s.templates.SaveTemplate(ctx, teamID, headers, mapping, meta); err != nil {
		s.noteTemplateFailure(ctx, batch, err)
		return false
	}
	if err := s.templates.IndexFingerprint(ctx, teamID, headers); err != nil {
		s.noteTemplateFailure(ctx, batch, err)
		return false
	}
	return true
}

func (s *ImportService) noteTemplateFailure(ctx context.Context, batch *importBatch, err error) {
	s.logger.WarnContext(ctx, "save mapping template failed", "error", err)
	if crerr.Is(err, ErrStoreUnavailable) {
		batch.markDegraded()
	}
}

func (s *ImportService) processRows(ctx context.Context, batch *importBatch, rows []telemetry.RawRow) ([]rowOutcome, int, bool, error) {
	outcomes := make([]rowOutcome, len(rows))
	if len(rows) == 0 {
		return outcomes, 0, false, nil
	}

	workers := min(s.cfg.Workers, len(rows))
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, 0, false, crerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var wg sync.WaitGroup
	scheduled := 0
	for i, raw := range rows {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = s.runRow(ctx, batch, i, raw)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, 0, false, crerr.Wrap(err, "submit row to worker pool")
		}
		scheduled++
	}
	wg.Wait()

	cancelled := scheduled < len(rows) || ctx.Err() != nil
	return outcomes[:scheduled], scheduled, cancelled, nil
}

// runRow isolates a panic in one row from the rest of the batch.
func (s *ImportService) runRow(ctx context.Context, batch *importBatch, index int, raw telemetry.RawRow) rowOutcome {
	var out rowOutcome
	var catcher panics.Catcher
	catcher.Try(func() {
		out = s.processRow(ctx, batch, index, raw)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		s.logger.ErrorContext(ctx, "row processing panicked",
			"row_index", index,
			"panic", fmt.Sprint(recovered.Value),
		)
		return rowOutcome{
			index: index,
			rowErr: &telemetry.RowError{
				RowIndex: index,
				RawRow:   raw,
				Errors:   []string{fmt.Sprintf("internal error while processing row: %v", recovered.Value)},
			},
		}
	}
	return out
}

type rowOutcome struct {
	index       int
	record      *telemetry.Record
	rowErr      *telemetry.RowError
	notFound    string
	ambiguous   string
	dateInvalid bool
}

func (s *ImportService) processRow(ctx context.Context, batch *importBatch, index int, raw telemetry.RawRow) rowOutcome {
	row := cleanRow(raw)
	out := rowOutcome{index: index}
	rec := telemetry.Record{
		TeamID:  batch.teamID,
		Metrics: make(map[telemetry.Field]float64),
	}

	var (
		errs     []string
		fields   []telemetry.Field
		resolved player.Candidate
	)
	fail := func(field telemetry.Field, msg string) {
		errs = append(errs, msg)
		fields = append(fields, field)
	}

	for _, m := range batch.mapping {
		cell := row[m.SourceHeader]
		if m.CanonicalField.IsCustom() {
			if v := strings.TrimSpace(cell); v != "" {
				if rec.Extras == nil {
					rec.Extras = make(map[string]string)
				}
				rec.Extras[m.CanonicalField.CustomKey()] = v
			}
			continue
		}

		value, err := batch.pipeline.Apply(ctx, cell, m)
		if err != nil {
			if m.CanonicalField == telemetry.FieldSessionDate {
				out.dateInvalid = true
			}
			if te, ok := transform.AsError(err); ok {
				fail(m.CanonicalField, fmt.Sprintf("%s: invalid value %q (%s)", m.SourceHeader, te.Value, te.Reason))
			} else {
				fail(m.CanonicalField, fmt.Sprintf("%s: %v", m.SourceHeader, err))
			}
			continue
		}
		if value.Kind == transform.KindEmpty {
			continue
		}

		switch f := m.CanonicalField; {
		case f == telemetry.FieldPlayerID:
			if rec.PlayerID != "" {
				continue
			}
			switch value.Player.Kind {
			case player.OutcomeResolved:
				resolved = value.Player.Best
				rec.PlayerID = resolved.PlayerID
				rec.PlayerName = resolved.FullName()
			case player.OutcomeAmbiguous:
				out.ambiguous = strings.TrimSpace(cell)
				options := make([]string, 0, len(value.Player.Options))
				for _, o := range value.Player.Options {
					options = append(options, o.Describe())
				}
				fail(f, fmt.Sprintf("ambiguous player %q: %s", out.ambiguous, strings.Join(options, "; ")))
			default:
				out.notFound = strings.TrimSpace(cell)
				fail(f, fmt.Sprintf("player %q not found", out.notFound))
			}
		case f == telemetry.FieldSessionDate:
			rec.SessionDate = value.Date
		case f == telemetry.FieldIsMatch:
			b := value.Bool
			rec.IsMatch = &b
		case f.IsMetric():
			if _, seen := rec.Metrics[f]; !seen {
				rec.Metrics[f] = value.Number
			}
		default:
			assignText(&rec, f, value)
		}
	}

	if rec.PlayerID == "" && out.notFound == "" && out.ambiguous == "" && !containsField(fields, telemetry.FieldPlayerID) {
		fail(telemetry.FieldPlayerID, "required field player_id is missing")
	}
	if rec.SessionDate.IsZero() && !out.dateInvalid {
		fail(telemetry.FieldSessionDate, "required field session_date is missing")
	}

	if len(errs) > 0 {
		out.rowErr = &telemetry.RowError{RowIndex: index, RawRow: raw, Errors: errs, Fields: fields}
		return out
	}

	position := player.ParsePosition(rec.Position)
	if position == player.PositionUnknown {
		position = resolved.Position
	}
	metrics, flags := s.engine.Complete(imputation.Input{
		Metrics:  rec.Metrics,
		Position: position,
		IsMatch:  rec.MatchSession(),
		SeedKey:  rec.PlayerID + "|" + rec.SessionDate.Format("2006-01-02"),
	})
	rec.Metrics = metrics
	if len(flags) > 0 {
		rec.Imputed = flags
	}

	out.record = &rec
	return out
}

func assignText(rec *telemetry.Record, field telemetry.Field, value transform.Value) {
	text := value.Text
	if value.Kind == transform.KindNumber {
		text = fmt.Sprint(value.Number)
	}
	switch field {
	case telemetry.FieldSessionType:
		rec.SessionType = text
	case telemetry.FieldSessionName:
		rec.SessionName = text
	case telemetry.FieldSessionDay:
		rec.SessionDay = text
	case telemetry.FieldDrillName:
		rec.DrillName = text
	case telemetry.FieldPosition:
		rec.Position = text
	case telemetry.FieldNotes:
		rec.Notes = text
	}
}

func containsField(fields []telemetry.Field, f telemetry.Field) bool {
	for _, v := range fields {
		if v == f {
			return true
		}
	}
	return false
}

// importBatch holds the per-batch collaborators and the warnings observed
// while rows are processed concurrently.
type importBatch struct {
	teamID   string
	mapping  []telemetry.FieldMapping
	session  *ResolverSession
	pipeline *transform.Pipeline
	logger   *logging.Logger

	mu               sync.Mutex
	implausible      map[telemetry.Field]string
	storeUnavailable bool
}

func (s *ImportService) newBatch(teamID string, mapping []telemetry.FieldMapping) *importBatch {
	b := &importBatch{
		teamID:      teamID,
		mapping:     mapping,
		logger:      s.logger,
		implausible: make(map[telemetry.Field]string),
	}
	var resolver transform.PlayerResolver
	if s.resolver != nil {
		b.session = s.resolver.NewSession(teamID)
		resolver = b.session
	}
	b.pipeline = transform.NewPipeline(resolver, b)
	return b
}

// Implausible records the first out of range value seen per field.
func (b *importBatch) Implausible(field telemetry.Field, raw string, value float64) {
	b.mu.Lock()
	_, seen := b.implausible[field]
	if !seen {
		b.implausible[field] = raw
	}
	b.mu.Unlock()

	if !seen {
		b.logger.Warn("implausible numeric value", "team_id", b.teamID, "field", field, "raw", raw, "value", value)
	}
}

func (b *importBatch) markDegraded() {
	b.mu.Lock()
	b.storeUnavailable = true
	b.mu.Unlock()
}

func (b *importBatch) degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storeUnavailable || (b.session != nil && b.session.Degraded())
}

func (b *importBatch) aggregate(outcomes []rowOutcome, processed int) telemetry.ImportResult {
	result := telemetry.ImportResult{
		Data:     make([]telemetry.Record, 0, len(outcomes)),
		Errors:   make([]telemetry.RowError, 0),
		Warnings: make([]string, 0),
	}

	notFound := newTokenSet()
	ambiguous := newTokenSet()
	for _, o := range outcomes {
		switch {
		case o.rowErr != nil:
			result.Errors = append(result.Errors, *o.rowErr)
		case o.record != nil:
			result.Data = append(result.Data, *o.record)
		}
		if o.notFound != "" {
			result.Stats.PlayersNotFound++
			notFound.add(o.notFound)
		}
		if o.ambiguous != "" {
			result.Stats.PlayersAmbiguous++
			ambiguous.add(o.ambiguous)
		}
		if o.dateInvalid {
			result.Stats.DatesInvalid++
		}
	}

	result.Stats.TotalRows = processed
	result.Stats.SuccessRows = len(result.Data)
	result.Stats.ErrorRows = len(result.Errors)
	result.Stats.SuccessRate = telemetry.SuccessRate(result.Stats.SuccessRows, processed)

	if notFound.len() > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d player(s) not found: %s", notFound.len(), notFound.summary()))
	}
	if ambiguous.len() > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d ambiguous player identifier(s): %s", ambiguous.len(), ambiguous.summary()))
	}
	if result.Stats.DatesInvalid > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d row(s) with an invalid session date", result.Stats.DatesInvalid))
	}

	b.mu.Lock()
	fields := make([]string, 0, len(b.implausible))
	for f := range b.implausible {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		result.Warnings = append(result.Warnings, fmt.Sprintf("implausible values for %s (e.g. %q)", f, b.implausible[telemetry.Field(f)]))
	}
	b.mu.Unlock()

	return result
}

// tokenSet keeps distinct tokens in first-seen order.
type tokenSet struct {
	seen  map[string]struct{}
	order []string
}

func newTokenSet() *tokenSet {
	return &tokenSet{seen: make(map[string]struct{})}
}

func (t *tokenSet) add(token string) {
	if _, ok := t.seen[token]; ok {
		return
	}
	t.seen[token] = struct{}{}
	t.order = append(t.order, token)
}

func (t *tokenSet) len() int {
	return len(t.order)
}

func (t *tokenSet) summary() string {
	quoted := make([]string, 0, maxListedTokens)
	for i, tok := range t.order {
		if i == maxListedTokens {
			break
		}
		quoted = append(quoted, fmt.Sprintf("%q", tok))
	}
	out := strings.Join(quoted, ", ")
	if extra := len(t.order) - maxListedTokens; extra > 0 {
		out += fmt.Sprintf(" and %d more", extra)
	}
	return out
}

func cleanMapping(mapping []telemetry.FieldMapping) ([]telemetry.FieldMapping, error) {
	if err := telemetry.ValidateMappings(mapping); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	out := make([]telemetry.FieldMapping, 0, len(mapping))
	for _, m := range mapping {
		m.SourceHeader = header.CleanHeader(m.SourceHeader)
		out = append(out, m)
	}
	return out, nil
}

func cleanRow(raw telemetry.RawRow) telemetry.RawRow {
	out := make(telemetry.RawRow, len(raw))
	for k, v := range raw {
		out[header.CleanHeader(k)] = v
	}
	return out
}

func rowHeaders(rows []telemetry.RawRow) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, row := range rows {
		for k := range row {
			k = header.CleanHeader(k)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
