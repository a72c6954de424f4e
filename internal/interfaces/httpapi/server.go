package httpapi

import (
	"net/http"

	"github.com/riskibarqy/perf-import/internal/platform/logging"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	// ImportRateLimit is the sustained requests per second accepted by the
	// import routes, shared by all clients. Zero disables the limit.
	ImportRateLimit float64
	ImportRateBurst int
}

func NewRouter(handler *Handler, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.SwaggerEnabled)
	var limiter *rate.Limiter
	if cfg.ImportRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ImportRateLimit), max(cfg.ImportRateBurst, 1))
	}
	registerImportRoutes(mux, handler, limiter)
	registerTeamRoutes(mux, handler)

	return RequestTracing(
		RequestLogging(logger,
			CORS(cfg.CORSAllowedOrigins,
				recoverPanic(logger,
					LimitBody(cfg.MaxBodyBytes, mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
