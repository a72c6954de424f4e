package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/perf-import/internal/config"
	"github.com/riskibarqy/perf-import/internal/domain/imputation"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		AppEnv:                     config.EnvDev,
		HTTPAddr:                   ":0",
		ReadTimeout:                time.Second,
		WriteTimeout:               time.Second,
		CORSAllowedOrigins:         []string{"*"},
		StoreBackend:               config.BackendMemory,
		PlayerBackend:              config.BackendMemory,
		StoreTimeout:               time.Second,
		StoreCircuitFailureCount:   3,
		StoreCircuitOpenTimeout:    time.Second,
		StoreCircuitHalfOpenMaxReq: 1,
		CacheSweepInterval:         time.Minute,
		ImportWorkers:              2,
		ImportAutosaveMinRate:      80,
		ImportPreviewSize:          5,
		FuzzyTemplateThreshold:     0.7,
		AutoMigrate:                true,
	}
}

func TestNewServer_Memory(t *testing.T) {
	srv, err := NewServer(context.Background(), testConfig(), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	rec := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"up"`)
}

func TestNewServer_SQLite(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = config.BackendSQLite
	cfg.PlayerBackend = config.BackendSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "perf.db")

	srv, err := NewServer(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	body := `{"team_id":"t1","headers":["Giocatore","Data","Distanza (m)"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/imports/mapping", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"mode":"pattern_fallback"`)
}

func TestNewServer_BadProfilesFile(t *testing.T) {
	cfg := testConfig()
	cfg.ImputationProfilesFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewServer(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}

func TestNewServer_ImportRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ImportRateLimit = 0.01
	cfg.ImportRateBurst = 1

	srv, err := NewServer(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	send := func() int {
		body := `{"team_id":"t1","headers":["Player","Date"]}`
		rec := httptest.NewRecorder()
		srv.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/imports/mapping", strings.NewReader(body)))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	rec := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWatchProfiles_ReloadsAndKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("over_35wkg_share: 0.4\n"), 0o600))
	profiles, err := imputation.LoadProfiles(path)
	require.NoError(t, err)

	engine := imputation.NewEngine(profiles, 0)
	srv := &Server{}
	require.NoError(t, srv.watchProfiles(path, engine, logging.NewNop()))
	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	require.NoError(t, os.WriteFile(path, []byte("over_35wkg_share: 0.5\n"), 0o600))
	require.Eventually(t, func() bool {
		return engine.Profiles().Over35WKgShare == 0.5
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("over_35wkg_share: 7\n"), 0o600))
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 0.5, engine.Profiles().Over35WKgShare)
}
