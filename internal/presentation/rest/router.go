package rest

import (
	"log/slog"
	"net/http"

	"github.com/thenielthevis/capstone-project-sub006/pkg/auth"
)

// RouterConfig collects the handlers served on the HTTP port.
type RouterConfig struct {
	Predictions *PredictionHandler
	Health      *HealthHandler
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// Validator enables bearer authentication when non-nil.
	Validator auth.TokenValidator
}

// publicPaths are served without a token.
var publicPaths = []string{"/healthz", "/readyz", "/metrics"}

// NewRouter builds the HTTP handler with authentication and request logging.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	cfg.Health.RegisterRoutes(mux)
	cfg.Predictions.RegisterRoutes(mux)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	var handler http.Handler = mux
	if cfg.Validator != nil {
		handler = auth.HTTPMiddleware(cfg.Validator, publicPaths)(handler)
	}
	return LoggingMiddleware(logger)(handler)
}
