package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	qb "github.com/riskibarqy/perf-import/internal/platform/querybuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ kv.Store          = (*KVStore)(nil)
	_ player.Repository = (*PlayerRepository)(nil)
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := Open(context.Background(), qb.SQLite, ":memory:", OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, MigrateUp(db.DB, qb.SQLite))
	return db
}

func TestKVStore_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewKVStore(openSQLite(t), qb.SQLite)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "perfmap:t1:fp:abc", []byte(`{"version":"1.0"}`), time.Hour))
	require.NoError(t, store.Set(ctx, "perfmap:t1:index", []byte(`["abc"]`), 0))

	value, ok, err := store.Get(ctx, "perfmap:t1:fp:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"version":"1.0"}`, string(value))

	require.NoError(t, store.Set(ctx, "perfmap:t1:fp:abc", []byte(`{"version":"1.1"}`), time.Hour))
	value, _, _ = store.Get(ctx, "perfmap:t1:fp:abc")
	assert.Equal(t, `{"version":"1.1"}`, string(value), "upsert must replace the value")

	now = now.Add(2 * time.Hour)

	_, ok, err = store.Get(ctx, "perfmap:t1:fp:abc")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must read as missing")

	exists, err := store.Exists(ctx, "perfmap:t1:index")
	require.NoError(t, err)
	assert.True(t, exists, "entry without ttl must survive")

	swept, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}

func TestKVStore_DeleteByPrefixEscapesWildcards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewKVStore(openSQLite(t), qb.SQLite)

	for _, key := range []string{"team_players:t_1", "team_players:t_1x", "team_players:tA1", "perfmap:t_1:index"} {
		require.NoError(t, store.Set(ctx, key, []byte("v"), 0))
	}

	deleted, err := store.DeleteByPrefix(ctx, "team_players:t_1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	exists, _ := store.Exists(ctx, "team_players:tA1")
	assert.True(t, exists, "underscore in prefix must not act as a wildcard")

	deleted, err = store.DeleteByPrefix(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.True(t, store.Healthy(ctx))
}

func TestPlayerRepository_Queries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openSQLite(t)
	repo := NewPlayerRepository(db, qb.SQLite)

	require.NoError(t, repo.Upsert(ctx,
		player.Candidate{PlayerID: "p1", TeamID: "t1", FirstName: "Mario", LastName: "Rossi", Position: player.PositionForward, ShirtNumber: 9},
		player.Candidate{PlayerID: "p2", TeamID: "t1", FirstName: "Matteo", LastName: "Rossi", Position: player.PositionMidfielder, ShirtNumber: 8},
		player.Candidate{PlayerID: "p3", TeamID: "t1", FirstName: "Luca", LastName: "Bianchi", Position: player.PositionGoalkeeper},
		player.Candidate{PlayerID: "p4", TeamID: "t2", FirstName: "Mario", LastName: "Verdi", ShirtNumber: 9},
	))
	_, err := db.ExecContext(ctx, "UPDATE players SET active = 0 WHERE id = 'p3'")
	require.NoError(t, err)

	roster, err := repo.ListActiveRoster(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Mario", roster[0].FirstName)
	assert.Equal(t, player.PositionForward, roster[0].Position)

	candidates, err := repo.FindCandidates(ctx, "t1", "", "ROSSI")
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	candidates, err = repo.FindCandidates(ctx, "t1", "mat", "rossi")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p2", candidates[0].PlayerID)

	found, ok, err := repo.FindByShirtNumber(ctx, "t1", 9)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", found.PlayerID)

	_, ok, err = repo.FindByShirtNumber(ctx, "t1", 99)
	require.NoError(t, err)
	assert.False(t, ok)

	err = repo.Upsert(ctx, player.Candidate{PlayerID: "", TeamID: "t1", FirstName: "X"})
	assert.Error(t, err)
}
