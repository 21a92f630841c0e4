package api

import (
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/workflow-components/invoke"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds settings for the HTTP layer.
type Config struct {
	// JWTSecret enables HS256 bearer authentication on /v1 routes when set.
	JWTSecret string //nolint:gosec // G117: config field
	JWTIssuer string
	// Metrics is served on /metrics when non-nil.
	Metrics *invoke.Metrics
	Logger  *slog.Logger
}

// NewRouter creates an http.Handler exposing the component routes.
func NewRouter(inv *invoke.Invoker, cfg Config) http.Handler {
	mux := http.NewServeMux()
	h := NewComponentHandler(inv)

	wrap := func(f http.HandlerFunc) http.Handler { return f }
	if cfg.JWTSecret != "" {
		mw := NewMiddleware([]byte(cfg.JWTSecret), cfg.JWTIssuer)
		wrap = func(f http.HandlerFunc) http.Handler { return mw.RequireAuth(f) }
	}

	mux.Handle("GET /v1/components", wrap(h.List))
	mux.Handle("GET /v1/components/{name}", wrap(h.Get))
	mux.Handle("POST /v1/components/{name}/run", wrap(h.Run))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	var handler http.Handler = mux
	if cfg.Logger != nil {
		handler = RequestLogger(cfg.Logger)(handler)
	}
	return otelhttp.NewHandler(handler, "compctl")
}
