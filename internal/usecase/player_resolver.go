package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"golang.org/x/sync/singleflight"
)

const defaultRosterCacheTTL = 10 * time.Minute

type PlayerResolverConfig struct {
	RosterCacheTTL time.Duration
	Match          player.MatchConfig
}

// ResolveResult is the answer to a single player identifier lookup.
type ResolveResult struct {
	Success             bool                `json:"success"`
	Token               string              `json:"token"`
	PlayerID            string              `json:"player_id,omitempty"`
	Player              *player.Candidate   `json:"player,omitempty"`
	Confidence          int                 `json:"confidence"`
	MatchType           string              `json:"match_type,omitempty"`
	Format              player.FormatKind   `json:"format,omitempty"`
	NeedsDisambiguation bool                `json:"needs_disambiguation"`
	Options             []player.Candidate  `json:"options,omitempty"`
	Suggestions         []player.Suggestion `json:"suggestions,omitempty"`
	Message             string              `json:"message,omitempty"`
}

// ResolverCacheStats counts roster snapshot traffic since start.
type ResolverCacheStats struct {
	RosterHits    int64 `json:"roster_hits"`
	RosterMisses  int64 `json:"roster_misses"`
	StoreFailures int64 `json:"store_failures"`
}

// PlayerResolver maps free-text player identifiers to roster players.
// Rosters are cached in the kv store and loads are shared between
// concurrent callers of the same team.
type PlayerResolver struct {
	repo    player.Repository
	store   kv.Store
	matcher *player.Matcher
	cfg     PlayerResolverConfig
	logger  *logging.Logger
	loads   singleflight.Group

	rosterHits    atomic.Int64
	rosterMisses  atomic.Int64
	storeFailures atomic.Int64
}

func NewPlayerResolver(repo player.Repository, store kv.Store, cfg PlayerResolverConfig, logger *logging.Logger) *PlayerResolver {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RosterCacheTTL <= 0 {
		cfg.RosterCacheTTL = defaultRosterCacheTTL
	}
	if cfg.Match == (player.MatchConfig{}) {
		cfg.Match = player.DefaultMatchConfig()
	}

	return &PlayerResolver{
		repo:    repo,
		store:   store,
		matcher: player.NewMatcher(cfg.Match),
		cfg:     cfg,
		logger:  logger,
	}
}

func (r *PlayerResolver) CacheStats() ResolverCacheStats {
	return ResolverCacheStats{
		RosterHits:    r.rosterHits.Load(),
		RosterMisses:  r.rosterMisses.Load(),
		StoreFailures: r.storeFailures.Load(),
	}
}

// ResolvePlayer resolves one identifier against the team roster.
func (r *PlayerResolver) ResolvePlayer(ctx context.Context, token, teamID string) (ResolveResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerResolver.ResolvePlayer", teamID)
	defer span.End()

	teamID, err := cleanTeamID(teamID)
	if err != nil {
		return ResolveResult{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ResolveResult{}, fmt.Errorf("%w: player identifier is required", ErrInvalidInput)
	}

	roster, _, err := r.loadRoster(ctx, teamID)
	if err != nil {
		return ResolveResult{}, err
	}

	outcome, err := r.resolve(ctx, token, teamID, roster)
	if err != nil {
		return ResolveResult{}, err
	}
	return NewResolveResult(token, outcome), nil
}

// NewSession returns a resolver bound to one team for the lifetime of a
// batch: the roster is loaded once and repeated tokens are answered from
// memory.
func (r *PlayerResolver) NewSession(teamID string) *ResolverSession {
	return &ResolverSession{
		resolver: r,
		teamID:   strings.TrimSpace(teamID),
		results:  make(map[string]player.Outcome),
	}
}

func (r *PlayerResolver) resolve(ctx context.Context, token, teamID string, roster []player.Candidate) (player.Outcome, error) {
	if len(roster) == 0 {
		var err error
		roster, err = r.searchCandidates(ctx, token, teamID)
		if err != nil {
			return player.Outcome{}, err
		}
	}

	outcome := r.matcher.Match(token, roster)
	if outcome.Kind == player.OutcomeNotFound && outcome.Format.Kind == player.FormatShirtNumber {
		found, ok, err := r.repo.FindByShirtNumber(ctx, teamID, outcome.Format.Number)
		if err != nil {
			return player.Outcome{}, dependencyFailure(err, "find player by shirt number")
		}
		if ok {
			found.Confidence = 100
			found.MatchReason = player.MatchExactShirtNumber
			outcome = player.Outcome{
				Kind:      player.OutcomeResolved,
				MatchType: player.MatchExactShirtNumber,
				Format:    outcome.Format,
				Best:      found,
			}
		}
	}

	r.logger.DebugContext(ctx, "player identifier resolved",
		"team_id", teamID,
		"token", token,
		"outcome", outcome.Kind,
		"match_type", outcome.MatchType,
		"format", outcome.Format.Kind,
	)
	return outcome, nil
}

// searchCandidates is the lookup used when no roster snapshot exists: the
// first word is matched against first names, the rest against last names.
func (r *PlayerResolver) searchCandidates(ctx context.Context, token, teamID string) ([]player.Candidate, error) {
	parts := strings.Fields(token)
	if len(parts) == 0 {
		return nil, nil
	}
	first := parts[0]
	last := strings.Join(parts[1:], " ")

	candidates, err := r.repo.FindCandidates(ctx, teamID, first, last)
	if err != nil {
		return nil, dependencyFailure(err, "find player candidates")
	}
	if len(parts) == 1 {
		byLast, err := r.repo.FindCandidates(ctx, teamID, "", first)
		if err != nil {
			return nil, dependencyFailure(err, "find player candidates by last name")
		}
		candidates = appendUniqueCandidates(candidates, byLast)
	}
	return candidates, nil
}

type rosterLoad struct {
	roster   []player.Candidate
	degraded bool
}

// loadRoster reads the team roster snapshot, falling back to the repository
// on a miss or when the store is unavailable. degraded reports a store error.
func (r *PlayerResolver) loadRoster(ctx context.Context, teamID string) ([]player.Candidate, bool, error) {
	v, err, _ := r.loads.Do(teamID, func() (any, error) {
		key := rosterKey(teamID)
		degraded := false

		data, ok, err := r.store.Get(ctx, key)
		switch {
		case err != nil:
			degraded = true
			r.storeFailures.Add(1)
			r.logger.WarnContext(ctx, "roster cache unavailable, reading repository", "team_id", teamID, "error", err)
		case ok:
			var roster []player.Candidate
			if decodeErr := decodeJSON(data, &roster); decodeErr == nil {
				r.rosterHits.Add(1)
				return rosterLoad{roster: roster}, nil
			}
			r.logger.WarnContext(ctx, "roster cache entry undecodable, reloading", "team_id", teamID)
		}

		r.rosterMisses.Add(1)
		roster, err := r.repo.ListActiveRoster(ctx, teamID)
		if err != nil {
			return nil, dependencyFailure(err, "list active roster")
		}

		if !degraded {
			if err := r.cacheRoster(ctx, key, roster); err != nil {
				degraded = true
				r.storeFailures.Add(1)
				r.logger.WarnContext(ctx, "cache roster failed", "team_id", teamID, "error", err)
			}
		}
		return rosterLoad{roster: roster, degraded: degraded}, nil
	})
	if err != nil {
		return nil, false, err
	}

	load := v.(rosterLoad)
	return load.roster, load.degraded, nil
}

func (r *PlayerResolver) cacheRoster(ctx context.Context, key string, roster []player.Candidate) error {
	if len(roster) == 0 {
		return nil
	}
	data, err := encodeJSON(roster)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, key, data, r.cfg.RosterCacheTTL)
}

// NewResolveResult describes outcome for API callers.
func NewResolveResult(token string, outcome player.Outcome) ResolveResult {
	res := ResolveResult{
		Token:       token,
		MatchType:   outcome.MatchType,
		Format:      outcome.Format.Kind,
		Suggestions: outcome.Suggestions,
	}

	switch outcome.Kind {
	case player.OutcomeResolved:
		best := outcome.Best
		res.Success = true
		res.PlayerID = best.PlayerID
		res.Player = &best
		res.Confidence = best.Confidence
		res.Message = fmt.Sprintf("matched %s", best.FullName())
	case player.OutcomeAmbiguous:
		res.NeedsDisambiguation = true
		res.Options = outcome.Options
		res.Confidence = outcome.Best.Confidence
		res.Message = fmt.Sprintf("%d players match %q", len(outcome.Options), token)
	default:
		res.Message = fmt.Sprintf("no player matches %q", token)
		if len(outcome.Suggestions) > 0 {
			names := make([]string, 0, len(outcome.Suggestions))
			for _, s := range outcome.Suggestions {
				names = append(names, s.DisplayName)
			}
			res.Message += "; did you mean " + strings.Join(names, ", ") + "?"
		}
	}
	return res
}

func appendUniqueCandidates(dst, src []player.Candidate) []player.Candidate {
	seen := make(map[string]struct{}, len(dst))
	for _, c := range dst {
		seen[c.PlayerID] = struct{}{}
	}
	for _, c := range src {
		if _, ok := seen[c.PlayerID]; ok {
			continue
		}
		seen[c.PlayerID] = struct{}{}
		dst = append(dst, c)
	}
	return dst
}

// ResolverSession is a per-batch resolver. It is safe for concurrent use.
type ResolverSession struct {
	resolver *PlayerResolver
	teamID   string

	loadOnce sync.Once
	roster   []player.Candidate
	degraded bool
	loadErr  error

	mu      sync.Mutex
	results map[string]player.Outcome
	lookups int
	hits    int
}

type SessionStats struct {
	Lookups   int `json:"lookups"`
	CacheHits int `json:"cache_hits"`
	Roster    int `json:"roster_size"`
}

// ResolveToken resolves token against the session roster snapshot.
func (s *ResolverSession) ResolveToken(ctx context.Context, token string) (player.Outcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return player.Outcome{Kind: player.OutcomeNotFound}, nil
	}

	s.loadOnce.Do(func() {
		teamID, err := cleanTeamID(s.teamID)
		if err != nil {
			s.loadErr = err
			return
		}
		s.teamID = teamID
		s.roster, s.degraded, s.loadErr = s.resolver.loadRoster(ctx, teamID)
	})
	if s.loadErr != nil {
		return player.Outcome{}, s.loadErr
	}

	// Tokens that normalize alike can still differ in shape ("Rossi, M" and
	// "rossi m"), so the shape is part of the key.
	key := s.teamID + ":" + string(player.DetectFormat(token).Kind) + ":" + player.NormalizeName(token)
	s.mu.Lock()
	s.lookups++
	if cached, ok := s.results[key]; ok {
		s.hits++
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	outcome, err := s.resolver.resolve(ctx, token, s.teamID, s.roster)
	if err != nil {
		return player.Outcome{}, err
	}

	s.mu.Lock()
	s.results[key] = outcome
	s.mu.Unlock()
	return outcome, nil
}

// Degraded reports whether the roster snapshot could not use the kv store.
// Call it once the batch is done.
func (s *ResolverSession) Degraded() bool {
	return s.degraded
}

func (s *ResolverSession) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{Lookups: s.lookups, CacheHits: s.hits, Roster: len(s.roster)}
}
