package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLoggerWritesKeyValues(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	logger.WarnContext(context.Background(), "roster cache unavailable", "team_id", "t1", "attempt", 2, "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "t1", fields["team_id"])
	assert.EqualValues(t, 2, fields["attempt"])
	assert.Contains(t, fields, "dangling")
}

// Not parallel: the mirror is process wide.
func TestMirrorReceivesEnabledEntries(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core))

	var (
		mu  sync.Mutex
		got []string
	)
	SetMirror(func(_ context.Context, level Level, msg string, _ ...any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, level.String()+":"+msg)
	})
	t.Cleanup(func() { SetMirror(nil) })

	ctx := context.Background()
	logger.DebugContext(ctx, "filtered")
	logger.InfoContext(ctx, "import batch processed")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"info:import batch processed"}, got)
}

func TestWithImportTagsContextEntries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	ctx := WithImport(context.Background(), " t1 ", "b1")
	ctx = WithImport(ctx, "", "b2")
	teamID, batchID := ImportFrom(ctx)
	assert.Equal(t, "t1", teamID)
	assert.Equal(t, "b2", batchID)

	logger.InfoContext(ctx, "import batch processed")
	logger.InfoContext(ctx, "save mapping template failed", KeyTeamID, "override")
	logger.Info("no context")

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "t1", first[KeyTeamID])
	assert.Equal(t, "b2", first[KeyBatchID])

	second := entries[1].ContextMap()
	assert.Equal(t, "override", second[KeyTeamID])
	assert.Equal(t, "b2", second[KeyBatchID])
	assert.Len(t, entries[1].Context, 2)

	assert.NotContains(t, entries[2].ContextMap(), KeyTeamID)
}

func TestImportFromEmptyContext(t *testing.T) {
	t.Parallel()

	teamID, batchID := ImportFrom(context.Background())
	assert.Empty(t, teamID)
	assert.Empty(t, batchID)
}

func TestNewJSONRespectsLevel(t *testing.T) {
	t.Parallel()

	logger := NewJSON("perf-import-api", LevelWarn)
	require.NotNil(t, logger)
	assert.False(t, logger.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Zap().Core().Enabled(zapcore.WarnLevel))
}
