package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/perf-import/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	LogLevel           logging.Level

	StoreBackend            string
	PlayerBackend           string
	DBURL                   string
	DBDisablePreparedBinary bool
	SQLitePath              string
	AutoMigrate             bool

	StoreTimeout                time.Duration
	StoreCircuitFailureCount    int
	StoreCircuitOpenTimeout     time.Duration
	StoreCircuitHalfOpenMaxReq  int
	CacheSweepInterval          time.Duration
	RosterCacheTTL              time.Duration
	TemplateTTL                 time.Duration
	NamedTemplateTTL            time.Duration
	FuzzyTemplateThreshold      float64
	ImportWorkers               int
	ImportAutosaveMinRate       int
	ImportPreviewSize           int
	ImputationSeed              uint64
	ImputationProfilesFile      string
	ImputationProfilesWatch     bool
	ImportRateLimit             float64
	ImportRateBurst             int

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// Load reads configuration from the environment. Values from a .env file
// (or the file named by ENV_FILE) fill variables that are not already set.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	p := &parser{}
	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "perf-import-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           strings.TrimSpace(getEnv("APP_HTTP_ADDR", ":8080")),
		ReadTimeout:        p.duration("APP_READ_TIMEOUT", "10s"),
		WriteTimeout:       p.duration("APP_WRITE_TIMEOUT", "60s"),
		MaxBodyBytes:       int64(p.intAtLeast("APP_MAX_BODY_BYTES", 32<<20, 1024)),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:     p.bool("SWAGGER_ENABLED", swaggerDefault),
		LogLevel:           logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),

		StoreBackend:            strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", BackendMemory))),
		PlayerBackend:           strings.ToLower(strings.TrimSpace(getEnv("PLAYER_BACKEND", BackendMemory))),
		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: p.bool("DB_DISABLE_PREPARED_BINARY_RESULT", "true"),
		SQLitePath:              strings.TrimSpace(getEnv("SQLITE_PATH", "perf-import.db")),
		AutoMigrate:             p.bool("DB_AUTO_MIGRATE", "true"),

		StoreTimeout:               p.duration("STORE_TIMEOUT", "500ms"),
		StoreCircuitFailureCount:   p.intAtLeast("STORE_CIRCUIT_FAILURE_COUNT", 5, 1),
		StoreCircuitOpenTimeout:    p.duration("STORE_CIRCUIT_OPEN_TIMEOUT", "15s"),
		StoreCircuitHalfOpenMaxReq: p.intAtLeast("STORE_CIRCUIT_HALF_OPEN_MAX_REQ", 2, 1),
		CacheSweepInterval:         p.duration("CACHE_SWEEP_INTERVAL", "1m"),
		RosterCacheTTL:             p.duration("ROSTER_CACHE_TTL", "10m"),
		TemplateTTL:                p.duration("TEMPLATE_TTL", "8760h"),
		NamedTemplateTTL:           p.duration("NAMED_TEMPLATE_TTL", "168h"),
		FuzzyTemplateThreshold:     p.ratio("FUZZY_TEMPLATE_THRESHOLD", 0.7),
		ImportWorkers:              p.intAtLeast("IMPORT_WORKERS", 4, 1),
		ImportAutosaveMinRate:      p.intAtLeast("IMPORT_AUTOSAVE_MIN_RATE", 80, 1),
		ImportPreviewSize:          p.intAtLeast("IMPORT_PREVIEW_SIZE", 5, 1),
		ImputationSeed:             p.uint64("IMPUTATION_SEED", 0),
		ImputationProfilesFile:     strings.TrimSpace(getEnv("IMPUTATION_PROFILES_FILE", "")),
		ImputationProfilesWatch:    p.bool("IMPUTATION_PROFILES_WATCH", "false"),
		ImportRateLimit:            p.nonNegative("IMPORT_RATE_LIMIT", 0),
		ImportRateBurst:            p.intAtLeast("IMPORT_RATE_BURST", 20, 1),

		PprofEnabled:               p.bool("PPROF_ENABLED", "false"),
		PprofAddr:                  strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		UptraceEnabled:             p.bool("UPTRACE_ENABLED", "false"),
		UptraceLogsEnabled:         p.bool("UPTRACE_LOGS_ENABLED", "true"),
		PyroscopeEnabled:           p.bool("PYROSCOPE_ENABLED", "false"),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        p.duration("PYROSCOPE_UPLOAD_RATE", "15s"),
	}
	if p.err != nil {
		return Config{}, p.err
	}

	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("APP_HTTP_ADDR cannot be empty")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	switch c.StoreBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: valid values are %s, %s, %s", c.StoreBackend, BackendMemory, BackendPostgres, BackendSQLite)
	}
	switch c.PlayerBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("invalid PLAYER_BACKEND %q: valid values are %s, %s, %s", c.PlayerBackend, BackendMemory, BackendPostgres, BackendSQLite)
	}
	if (c.StoreBackend == BackendPostgres || c.PlayerBackend == BackendPostgres) && c.DBURL == "" {
		return fmt.Errorf("DB_URL is required when a backend is %s", BackendPostgres)
	}
	if (c.StoreBackend == BackendSQLite || c.PlayerBackend == BackendSQLite) && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required when a backend is %s", BackendSQLite)
	}
	if c.StoreBackend != BackendMemory && c.PlayerBackend != BackendMemory && c.StoreBackend != c.PlayerBackend {
		return fmt.Errorf("STORE_BACKEND and PLAYER_BACKEND must use the same database, got %s and %s", c.StoreBackend, c.PlayerBackend)
	}
	if c.ImportAutosaveMinRate > 100 {
		return fmt.Errorf("IMPORT_AUTOSAVE_MIN_RATE must be <= 100")
	}
	if c.ImputationProfilesWatch && c.ImputationProfilesFile == "" {
		return fmt.Errorf("IMPUTATION_PROFILES_FILE is required when IMPUTATION_PROFILES_WATCH=true")
	}

	if c.PprofEnabled && c.PprofAddr == "" {
		return fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}
	if c.UptraceEnabled && c.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if c.PyroscopeEnabled {
		if c.PyroscopeServerAddress == "" {
			return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
		}
		if c.PyroscopeAppName == "" {
			return fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
		}
	}
	return nil
}

// Database names the SQL backend shared by the store and the player
// repository. ok is false when both run in memory.
func (c Config) Database() (backend, dsn string, ok bool) {
	switch {
	case c.StoreBackend == BackendSQLite || c.PlayerBackend == BackendSQLite:
		return BackendSQLite, c.SQLitePath, true
	case c.StoreBackend == BackendPostgres || c.PlayerBackend == BackendPostgres:
		return BackendPostgres, c.DBURL, true
	default:
		return "", "", false
	}
}

func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	err := godotenv.Load(path)
	switch {
	case err == nil:
		return nil
	case !explicit && errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("load env file %s: %w", path, err)
	}
}

// parser records the first parse error so Load can read every variable
// in one pass.
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
}

func (p *parser) bool(key, fallback string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		p.fail(key, err)
	}
	return v
}

// duration parses a strictly positive duration.
func (p *parser) duration(key, fallback string) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if v <= 0 {
		p.fail(key, fmt.Errorf("must be > 0"))
	}
	return v
}

func (p *parser) intAtLeast(key string, fallback, minimum int) int {
	v, err := getEnvAsInt(key, fallback)
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if v < minimum {
		p.fail(key, fmt.Errorf("must be >= %d", minimum))
	}
	return v
}

func (p *parser) uint64(key string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		p.fail(key, err)
	}
	return v
}

// ratio parses a value in (0, 1].
func (p *parser) ratio(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if v <= 0 || v > 1 {
		p.fail(key, fmt.Errorf("must be in (0, 1]"))
	}
	return v
}

// nonNegative parses a float >= 0. Zero usually means disabled.
func (p *parser) nonNegative(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, err)
		return 0
	}
	if v < 0 {
		p.fail(key, fmt.Errorf("must be >= 0"))
	}
	return v
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.Atoi(value)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}

	return ""
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
