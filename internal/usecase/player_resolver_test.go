package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	"github.com/riskibarqy/perf-import/internal/infrastructure/repository/memory"
	kvmock "github.com/riskibarqy/perf-import/internal/mocks/domain/kv"
	playermock "github.com/riskibarqy/perf-import/internal/mocks/domain/player"
	"github.com/riskibarqy/perf-import/internal/platform/cache"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const demoTeam = memory.DemoTeamID

func TestPlayerResolver_ExactAndAmbiguous(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver := NewPlayerResolver(memory.NewPlayerRepository(memory.SeedPlayers()), cache.NewStore(), PlayerResolverConfig{}, logging.NewNop())

	exact, err := resolver.ResolvePlayer(ctx, "Mario Rossi", demoTeam)
	require.NoError(t, err)
	assert.True(t, exact.Success)
	assert.Equal(t, "demo-fwd-9", exact.PlayerID)
	assert.Equal(t, 100, exact.Confidence)
	assert.Equal(t, player.MatchExactFullName, exact.MatchType)

	ambiguous, err := resolver.ResolvePlayer(ctx, "M. Rossi", demoTeam)
	require.NoError(t, err)
	assert.False(t, ambiguous.Success)
	assert.True(t, ambiguous.NeedsDisambiguation)
	require.Len(t, ambiguous.Options, 2)
	ids := []string{ambiguous.Options[0].PlayerID, ambiguous.Options[1].PlayerID}
	assert.ElementsMatch(t, []string{"demo-fwd-9", "demo-mid-8"}, ids)

	missing, err := resolver.ResolvePlayer(ctx, "Zlatan Ibrahimovic", demoTeam)
	require.NoError(t, err)
	assert.False(t, missing.Success)
	assert.False(t, missing.NeedsDisambiguation)
	assert.Contains(t, missing.Message, "no player matches")
}

func TestPlayerResolver_InvalidInput(t *testing.T) {
	t.Parallel()

	resolver := NewPlayerResolver(memory.NewPlayerRepository(nil), cache.NewStore(), PlayerResolverConfig{}, logging.NewNop())

	_, err := resolver.ResolvePlayer(context.Background(), "   ", demoTeam)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank token, got %v", err)
	}
	_, err = resolver.ResolvePlayer(context.Background(), "Mario", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank team, got %v", err)
	}
}

func TestPlayerResolver_RosterSnapshotIsCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := playermock.NewRepository(t)
	repo.On("ListActiveRoster", mock.Anything, demoTeam).Return(memory.SeedPlayers(), nil).Once()

	store := cache.NewStore()
	resolver := NewPlayerResolver(repo, store, PlayerResolverConfig{}, logging.NewNop())

	for _, token := range []string{"Mario Rossi", "Esposito Lorenzo", "#4"} {
		res, err := resolver.ResolvePlayer(ctx, token, demoTeam)
		require.NoError(t, err)
		assert.True(t, res.Success, "token %q", token)
	}

	exists, err := store.Exists(ctx, rosterKey(demoTeam))
	require.NoError(t, err)
	assert.True(t, exists)

	stats := resolver.CacheStats()
	assert.Equal(t, int64(1), stats.RosterMisses)
	assert.Equal(t, int64(2), stats.RosterHits)
}

func TestPlayerResolver_EmptyRosterSearchesRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mario := memory.SeedPlayers()[7]

	repo := playermock.NewRepository(t)
	repo.On("ListActiveRoster", mock.Anything, demoTeam).Return([]player.Candidate{}, nil)
	repo.On("FindCandidates", mock.Anything, demoTeam, "Mario", "Rossi").Return([]player.Candidate{mario}, nil).Once()
	repo.On("FindCandidates", mock.Anything, demoTeam, "#9", "").Return(nil, nil).Once()
	repo.On("FindCandidates", mock.Anything, demoTeam, "", "#9").Return(nil, nil).Once()
	repo.On("FindByShirtNumber", mock.Anything, demoTeam, 9).Return(mario, true, nil).Once()

	resolver := NewPlayerResolver(repo, cache.NewStore(), PlayerResolverConfig{}, logging.NewNop())

	byName, err := resolver.ResolvePlayer(ctx, "Mario Rossi", demoTeam)
	require.NoError(t, err)
	assert.Equal(t, mario.PlayerID, byName.PlayerID)

	byShirt, err := resolver.ResolvePlayer(ctx, "#9", demoTeam)
	require.NoError(t, err)
	assert.True(t, byShirt.Success)
	assert.Equal(t, mario.PlayerID, byShirt.PlayerID)
	assert.Equal(t, player.MatchExactShirtNumber, byShirt.MatchType)
}

func TestPlayerResolver_StoreUnavailableReadsRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kvmock.NewStore(t)
	down := crerr.Mark(errors.New("i/o timeout"), kv.ErrUnavailable)
	store.On("Get", mock.Anything, rosterKey(demoTeam)).Return(nil, false, down)

	resolver := NewPlayerResolver(memory.NewPlayerRepository(memory.SeedPlayers()), store, PlayerResolverConfig{}, logging.NewNop())

	res, err := resolver.ResolvePlayer(ctx, "Mario Rossi", demoTeam)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(1), resolver.CacheStats().StoreFailures)

	session := resolver.NewSession(demoTeam)
	outcome, err := session.ResolveToken(ctx, "Matteo Rossi")
	require.NoError(t, err)
	assert.Equal(t, player.OutcomeResolved, outcome.Kind)
	assert.True(t, session.Degraded())
}

func TestPlayerResolver_RepositoryFailure(t *testing.T) {
	t.Parallel()

	repo := playermock.NewRepository(t)
	repo.On("ListActiveRoster", mock.Anything, demoTeam).Return(nil, errors.New("connection reset")).Once()

	resolver := NewPlayerResolver(repo, cache.NewStore(), PlayerResolverConfig{}, logging.NewNop())
	_, err := resolver.ResolvePlayer(context.Background(), "Mario Rossi", demoTeam)
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestResolverSession_MemoizesTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := playermock.NewRepository(t)
	repo.On("ListActiveRoster", mock.Anything, demoTeam).Return(memory.SeedPlayers(), nil).Once()

	resolver := NewPlayerResolver(repo, cache.NewStore(), PlayerResolverConfig{}, logging.NewNop())
	session := resolver.NewSession(demoTeam)

	first, err := session.ResolveToken(ctx, "Mario Rossi")
	require.NoError(t, err)
	require.Equal(t, player.OutcomeResolved, first.Kind)

	var wg sync.WaitGroup
	for i := 0; i < 7; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := session.ResolveToken(ctx, "mario  ROSSI")
			assert.NoError(t, err)
			assert.Equal(t, "demo-fwd-9", outcome.Best.PlayerID)
		}()
	}
	wg.Wait()

	stats := session.Stats()
	assert.Equal(t, 8, stats.Lookups)
	assert.Equal(t, 7, stats.CacheHits)
	assert.Equal(t, 9, stats.Roster)
	assert.False(t, session.Degraded())
}

func TestResolverSession_CaseVariantsResolveAlike(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, order := range [][]string{{"M. Rossi", "m. rossi"}, {"m. rossi", "M. Rossi"}} {
		repo := playermock.NewRepository(t)
		repo.On("ListActiveRoster", mock.Anything, demoTeam).Return(memory.SeedPlayers(), nil).Once()
		session := NewPlayerResolver(repo, cache.NewStore(), PlayerResolverConfig{}, logging.NewNop()).NewSession(demoTeam)

		for _, token := range order {
			outcome, err := session.ResolveToken(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, player.OutcomeAmbiguous, outcome.Kind, "token %q after %v", token, order)
			assert.Len(t, outcome.Options, 2, "token %q", token)
			assert.Equal(t, player.FormatInitialLast, outcome.Format.Kind)
		}
		assert.Equal(t, 1, session.Stats().CacheHits)
	}

	repo := playermock.NewRepository(t)
	repo.On("ListActiveRoster", mock.Anything, demoTeam).Return(memory.SeedPlayers(), nil).Once()
	session := NewPlayerResolver(repo, cache.NewStore(), PlayerResolverConfig{}, logging.NewNop()).NewSession(demoTeam)
	lastFirst, err := session.ResolveToken(ctx, "Rossi, Mario")
	require.NoError(t, err)
	assert.Equal(t, player.FormatLastFirst, lastFirst.Format.Kind)
	reversed, err := session.ResolveToken(ctx, "rossi mario")
	require.NoError(t, err)
	assert.Equal(t, player.FormatFullName, reversed.Format.Kind)
	assert.Zero(t, session.Stats().CacheHits)
}
