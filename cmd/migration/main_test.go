package main

import (
	"path/filepath"
	"testing"

	"github.com/riskibarqy/perf-import/internal/config"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{" 3 "})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	_, err = parseSteps([]string{"0"})
	assert.Error(t, err)
	_, err = parseSteps([]string{"x"})
	assert.Error(t, err)
}

func TestParseVersionAndTarget(t *testing.T) {
	v, err := parseVersion("2")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	_, err = parseVersion("-1")
	assert.Error(t, err)

	target, err := parseTarget("1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), target)
	_, err = parseTarget("-1")
	assert.Error(t, err)
}

func TestRun_SQLite(t *testing.T) {
	cfg := config.Config{
		StoreBackend:  config.BackendSQLite,
		PlayerBackend: config.BackendSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "perf.db"),
	}
	logger := logging.NewNop()

	require.NoError(t, run(cfg, logger, "up", nil))
	require.NoError(t, run(cfg, logger, "up", nil))
	require.NoError(t, run(cfg, logger, "seed", nil))
	require.NoError(t, run(cfg, logger, "down", []string{"2"}))
	assert.ErrorIs(t, run(cfg, logger, "sideways", nil), errUsage)
}

func TestRun_RequiresDatabase(t *testing.T) {
	cfg := config.Config{StoreBackend: config.BackendMemory, PlayerBackend: config.BackendMemory}
	assert.Error(t, run(cfg, logging.NewNop(), "up", nil))
}
