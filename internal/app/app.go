package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/perf-import/internal/config"
	"github.com/riskibarqy/perf-import/internal/domain/header"
	"github.com/riskibarqy/perf-import/internal/domain/imputation"
	"github.com/riskibarqy/perf-import/internal/domain/kv"
	"github.com/riskibarqy/perf-import/internal/domain/player"
	repocache "github.com/riskibarqy/perf-import/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/perf-import/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/perf-import/internal/infrastructure/repository/sqlstore"
	"github.com/riskibarqy/perf-import/internal/interfaces/httpapi"
	"github.com/riskibarqy/perf-import/internal/platform/cache"
	"github.com/riskibarqy/perf-import/internal/platform/filewatch"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
	qb "github.com/riskibarqy/perf-import/internal/platform/querybuilder"
	"github.com/riskibarqy/perf-import/internal/platform/resilience"
	"github.com/riskibarqy/perf-import/internal/usecase"
	"github.com/sourcegraph/conc"
)

// Server is the HTTP server plus the resources it owns.
type Server struct {
	HTTP *http.Server

	closers []func() error
}

// Close releases resources in reverse acquisition order.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func NewServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (_ *Server, err error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	srv := &Server{}
	defer func() {
		if err != nil {
			_ = srv.Close()
		}
	}()

	db, dialect, err := srv.openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := srv.buildStore(cfg, db, dialect, logger)
	if err != nil {
		return nil, err
	}
	players := buildPlayerRepository(cfg, db, dialect)

	profiles := imputation.DefaultProfiles()
	if cfg.ImputationProfilesFile != "" {
		profiles, err = imputation.LoadProfiles(cfg.ImputationProfilesFile)
		if err != nil {
			return nil, fmt.Errorf("load imputation profiles: %w", err)
		}
		logger.Info("imputation profiles loaded", "path", cfg.ImputationProfilesFile)
	}

	templateSvc := usecase.NewTemplateService(store, usecase.TemplateConfig{
		TemplateTTL:      cfg.TemplateTTL,
		NamedTemplateTTL: cfg.NamedTemplateTTL,
		FuzzyThreshold:   cfg.FuzzyTemplateThreshold,
	}, logger)
	resolver := usecase.NewPlayerResolver(players, store, usecase.PlayerResolverConfig{
		RosterCacheTTL: cfg.RosterCacheTTL,
	}, logger)
	mappingSvc := usecase.NewMappingService(templateSvc, header.NewClassifier(nil), logger)
	engine := imputation.NewEngine(profiles, cfg.ImputationSeed)
	if cfg.ImputationProfilesWatch {
		if err := srv.watchProfiles(cfg.ImputationProfilesFile, engine, logger); err != nil {
			return nil, err
		}
	}
	importSvc := usecase.NewImportService(
		templateSvc,
		resolver,
		engine,
		usecase.ImportConfig{
			Workers:         cfg.ImportWorkers,
			AutosaveMinRate: cfg.ImportAutosaveMinRate,
			PreviewSize:     cfg.ImportPreviewSize,
		},
		logger,
	)

	handler := httpapi.NewHandler(mappingSvc, importSvc, resolver, templateSvc, store, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		ImportRateLimit:    cfg.ImportRateLimit,
		ImportRateBurst:    cfg.ImportRateBurst,
	})

	srv.HTTP = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv, nil
}

func (s *Server) openDatabase(ctx context.Context, cfg config.Config, logger *logging.Logger) (*sqlx.DB, qb.Dialect, error) {
	backend, dsn, ok := cfg.Database()
	if !ok {
		return nil, "", nil
	}
	dialect, err := qb.ParseDialect(backend)
	if err != nil {
		return nil, "", err
	}

	db, err := sqlstore.Open(ctx, dialect, dsn, sqlstore.OpenOptions{
		DisablePreparedBinaryResult: cfg.DBDisablePreparedBinary,
	})
	if err != nil {
		return nil, "", err
	}
	s.closers = append(s.closers, db.Close)

	if cfg.AutoMigrate {
		if err := sqlstore.MigrateUp(db.DB, dialect); err != nil {
			return nil, "", err
		}
	}
	logger.Info("database connected", "dialect", dialect, "auto_migrate", cfg.AutoMigrate)
	return db, dialect, nil
}

func (s *Server) buildStore(cfg config.Config, db *sqlx.DB, dialect qb.Dialect, logger *logging.Logger) (kv.Store, error) {
	var base kv.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := cache.NewStore()
		ctx, cancel := context.WithCancel(context.Background())
		var wg conc.WaitGroup
		wg.Go(func() { mem.Run(ctx, cfg.CacheSweepInterval) })
		s.closers = append(s.closers, func() error {
			cancel()
			wg.Wait()
			return nil
		})
		base = mem
	case config.BackendPostgres, config.BackendSQLite:
		base = sqlstore.NewKVStore(db, dialect)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	return repocache.NewGuardedStore(base, cfg.StoreTimeout, resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.StoreCircuitFailureCount,
		OpenTimeout:      cfg.StoreCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.StoreCircuitHalfOpenMaxReq,
	}, logger.With("component", "kv_store")), nil
}

// watchProfiles reloads the imputation profiles when the file changes. A
// file that fails to parse leaves the running profiles in place.
func (s *Server) watchProfiles(path string, engine *imputation.Engine, logger *logging.Logger) error {
	logger = logger.With("component", "profile_watcher", "path", path)
	w, err := filewatch.New(path, 0, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg conc.WaitGroup
	wg.Go(func() {
		w.Run(ctx, func(ctx context.Context) {
			profiles, err := imputation.LoadProfiles(path)
			if err != nil {
				logger.WarnContext(ctx, "imputation profiles reload rejected", "error", err)
				return
			}
			engine.SetProfiles(profiles)
			logger.InfoContext(ctx, "imputation profiles reloaded")
		})
	})
	s.closers = append(s.closers, func() error {
		cancel()
		wg.Wait()
		return w.Close()
	})
	return nil
}

func buildPlayerRepository(cfg config.Config, db *sqlx.DB, dialect qb.Dialect) player.Repository {
	if cfg.PlayerBackend == config.BackendMemory {
		return memory.NewPlayerRepository(memory.SeedPlayers())
	}
	return sqlstore.NewPlayerRepository(db, dialect)
}
