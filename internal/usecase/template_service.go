package usecase

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/header"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/domain/telemetry"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
)

const (
	TemplateVersion = "1.0"

	defaultTemplateTTL      = 365 * 24 * time.Hour
	defaultNamedTemplateTTL = 7 * 24 * time.Hour
	defaultFuzzyThreshold   = 0.7
	maxTemplateNameLength   = 50
)

var templateNameUnsafeRegex = regexp.MustCompile(`[^A-Za-z0-9_\- ]`)

type TemplateConfig struct {
	TemplateTTL      time.Duration
	NamedTemplateTTL time.Duration
	FuzzyThreshold   float64
}

// FuzzyMatch is the closest stored template for a header layout.
type FuzzyMatch struct {
	Template   telemetry.MappingTemplate
	Similarity float64
}

// TemplateService persists learned header mappings per team. Every key lives
// under the team so ClearTeam can drop them in one pass.
type TemplateService struct {
	store  kv.Store
	cfg    TemplateConfig
	logger *logging.Logger
	now    func() time.Time

	// serializes read-modify-write of the index keys
	indexMu sync.Mutex
}

func NewTemplateService(store kv.Store, cfg TemplateConfig, logger *logging.Logger) *TemplateService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TemplateTTL <= 0 {
		cfg.TemplateTTL = defaultTemplateTTL
	}
	if cfg.NamedTemplateTTL <= 0 {
		cfg.NamedTemplateTTL = defaultNamedTemplateTTL
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		cfg.FuzzyThreshold = defaultFuzzyThreshold
	}

	return &TemplateService{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *TemplateService) FuzzyThreshold() float64 {
	return s.cfg.FuzzyThreshold
}

func fingerprintKey(teamID, fingerprint string) string {
	return "perfmap:" + teamID + ":fp:" + fingerprint
}

func fingerprintIndexKey(teamID string) string {
	return "perfmap:" + teamID + ":index"
}

func namedTemplateKey(teamID, name string) string {
	return "template:" + teamID + ":" + name
}

// '#' never survives name sanitizing, so the index cannot collide with a template.
func namedTemplateIndexKey(teamID string) string {
	return "template:" + teamID + ":#index"
}

func rosterKey(teamID string) string {
	return "team_players:" + teamID
}

func cleanTeamID(teamID string) (string, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return "", fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	if strings.ContainsAny(teamID, ":#") {
		return "", fmt.Errorf("%w: team id must not contain ':' or '#'", ErrInvalidInput)
	}
	return teamID, nil
}

// GetExact returns the template stored for exactly this header layout.
func (s *TemplateService) GetExact(ctx context.Context, teamID string, headers []string) (telemetry.MappingTemplate, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.GetExact", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return telemetry.MappingTemplate{}, false, err
	}
	if len(headers) == 0 {
		return telemetry.MappingTemplate{}, false, nil
	}

	return s.loadTemplate(ctx, fingerprintKey(teamID, header.Fingerprint(headers)))
}

// SaveTemplate stores mapping under the fingerprint of headers.
func (s *TemplateService) SaveTemplate(
	ctx context.Context,
	teamID string,
	headers []string,
	mapping []telemetry.FieldMapping,
	meta telemetry.TemplateMeta,
) (telemetry.MappingTemplate, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.SaveTemplate", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return telemetry.MappingTemplate{}, err
	}
	if len(headers) == 0 {
		return telemetry.MappingTemplate{}, fmt.Errorf("%w: headers are required", ErrInvalidInput)
	}
	if err := telemetry.ValidateMappings(mapping); err != nil {
		return telemetry.MappingTemplate{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	fingerprint := header.Fingerprint(headers)
	tpl := telemetry.MappingTemplate{
		Version:           TemplateVersion,
		TeamID:            teamID,
		Fingerprint:       fingerprint,
		HeadersNormalized: header.NormalizedSorted(headers),
		Mapping:           slices.Clone(mapping),
		Meta:              meta,
		SavedAt:           s.now().UTC(),
	}

	if err := s.storeJSON(ctx, fingerprintKey(teamID, fingerprint), tpl, s.cfg.TemplateTTL); err != nil {
		return telemetry.MappingTemplate{}, err
	}

	s.logger.DebugContext(ctx, "mapping template saved",
		"team_id", teamID,
		"fingerprint", fingerprint,
		"fields", len(mapping),
	)
	return tpl, nil
}

// IndexFingerprint records the fingerprint of headers in the team index.
func (s *TemplateService) IndexFingerprint(ctx context.Context, teamID string, headers []string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.IndexFingerprint", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		return fmt.Errorf("%w: headers are required", ErrInvalidInput)
	}

	return s.addToIndex(ctx, fingerprintIndexKey(teamID), header.Fingerprint(headers), s.cfg.TemplateTTL)
}

// ListAll returns every indexed template of the team. Index entries whose
// template expired or cannot be decoded are skipped.
func (s *TemplateService) ListAll(ctx context.Context, teamID string) ([]telemetry.MappingTemplate, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.ListAll", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return nil, err
	}

	fingerprints, err := s.readIndex(ctx, fingerprintIndexKey(teamID))
	if err != nil {
		return nil, err
	}

	out := make([]telemetry.MappingTemplate, 0, len(fingerprints))
	for _, fp := range fingerprints {
		tpl, ok, err := s.loadTemplate(ctx, fingerprintKey(teamID, fp))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, tpl)
		}
	}
	return out, nil
}

// FindBestFuzzy returns the stored template whose header set is closest to
// headers by Jaccard similarity, when that similarity reaches threshold.
// A non-positive threshold uses the configured default.
func (s *TemplateService) FindBestFuzzy(ctx context.Context, teamID string, headers []string, threshold float64) (FuzzyMatch, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.FindBestFuzzy", teamID)
	defer span.End()

	if threshold <= 0 {
		threshold = s.cfg.FuzzyThreshold
	}

	templates, err := s.ListAll(ctx, teamID)
	if err != nil {
		return FuzzyMatch{}, false, err
	}

	var (
		best  FuzzyMatch
		found bool
	)
	for _, tpl := range templates {
		sim := header.Jaccard(headers, tpl.HeadersNormalized)
		if sim > best.Similarity {
			best = FuzzyMatch{Template: tpl, Similarity: sim}
			found = true
		}
	}
	if !found || best.Similarity < threshold {
		return FuzzyMatch{}, false, nil
	}
	return best, true, nil
}

// SanitizeTemplateName keeps letters, digits, '_', '-' and spaces and
// truncates the result to 50 characters.
func SanitizeTemplateName(raw string) string {
	name := strings.TrimSpace(templateNameUnsafeRegex.ReplaceAllString(raw, ""))
	if len(name) > maxTemplateNameLength {
		name = strings.TrimSpace(name[:maxTemplateNameLength])
	}
	return name
}

// SaveNamed stores a manually curated mapping under a user supplied name.
func (s *TemplateService) SaveNamed(
	ctx context.Context,
	teamID, name string,
	mapping []telemetry.FieldMapping,
	meta telemetry.TemplateMeta,
) (telemetry.MappingTemplate, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.SaveNamed", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return telemetry.MappingTemplate{}, err
	}
	name = SanitizeTemplateName(name)
	if name == "" {
		return telemetry.MappingTemplate{}, fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if err := telemetry.ValidateMappings(mapping); err != nil {
		return telemetry.MappingTemplate{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	sources := make([]string, 0, len(mapping))
	for _, m := range mapping {
		sources = append(sources, m.SourceHeader)
	}

	tpl := telemetry.MappingTemplate{
		Version:           TemplateVersion,
		Name:              name,
		TeamID:            teamID,
		Fingerprint:       header.Fingerprint(sources),
		HeadersNormalized: header.NormalizedSorted(sources),
		Mapping:           slices.Clone(mapping),
		Meta:              meta,
		SavedAt:           s.now().UTC(),
	}

	if err := s.storeJSON(ctx, namedTemplateKey(teamID, name), tpl, s.cfg.NamedTemplateTTL); err != nil {
		return telemetry.MappingTemplate{}, err
	}
	if err := s.addToIndex(ctx, namedTemplateIndexKey(teamID), name, s.cfg.NamedTemplateTTL); err != nil {
		return telemetry.MappingTemplate{}, err
	}
	return tpl, nil
}

// ListNamed returns the named templates of the team that have not expired.
func (s *TemplateService) ListNamed(ctx context.Context, teamID string) ([]telemetry.MappingTemplate, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.ListNamed", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return nil, err
	}

	names, err := s.readIndex(ctx, namedTemplateIndexKey(teamID))
	if err != nil {
		return nil, err
	}

	out := make([]telemetry.MappingTemplate, 0, len(names))
	for _, name := range names {
		tpl, ok, err := s.loadTemplate(ctx, namedTemplateKey(teamID, name))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, tpl)
		}
	}
	return out, nil
}

// ClearTeam drops every template, index and roster snapshot of the team and
// reports how many keys were removed.
func (s *TemplateService) ClearTeam(ctx context.Context, teamID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TemplateService.ClearTeam", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, prefix := range []string{"perfmap:" + teamID + ":", "template:" + teamID + ":"} {
		n, err := s.store.DeleteByPrefix(ctx, prefix)
		if err != nil {
			return total, crerr.Wrapf(err, "clear %s", prefix)
		}
		total += n
	}

	key := rosterKey(teamID)
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return total, crerr.Wrapf(err, "check %s", key)
	}
	if exists {
		if err := s.store.Delete(ctx, key); err != nil {
			return total, crerr.Wrapf(err, "delete %s", key)
		}
		total++
	}

	s.logger.InfoContext(ctx, "team cache cleared", "team_id", teamID, "deleted", total)
	return total, nil
}

func (s *TemplateService) loadTemplate(ctx context.Context, key string) (telemetry.MappingTemplate, bool, error) {
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return telemetry.MappingTemplate{}, false, crerr.Wrapf(err, "get template %s", key)
	}
	if !ok {
		return telemetry.MappingTemplate{}, false, nil
	}

	var tpl telemetry.MappingTemplate
	if err := decodeJSON(data, &tpl); err != nil {
		s.logger.WarnContext(ctx, "skip undecodable template", "key", key, "error", err)
		return telemetry.MappingTemplate{}, false, nil
	}
	return tpl, true, nil
}

func (s *TemplateService) storeJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, data, ttl); err != nil {
		return crerr.Wrapf(err, "set %s", key)
	}
	return nil
}

func (s *TemplateService) readIndex(ctx context.Context, key string) ([]string, error) {
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, crerr.Wrapf(err, "get index %s", key)
	}
	if !ok {
		return nil, nil
	}

	var entries []string
	if err := decodeJSON(data, &entries); err != nil {
		s.logger.WarnContext(ctx, "reset undecodable index", "key", key, "error", err)
		return nil, nil
	}
	return entries, nil
}

func (s *TemplateService) addToIndex(ctx context.Context, key, entry string, ttl time.Duration) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	entries, err := s.readIndex(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(entries, entry) {
		return nil
	}
	return s.storeJSON(ctx, key, append(entries, entry), ttl)
}
