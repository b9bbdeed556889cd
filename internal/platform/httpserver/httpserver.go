package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hcert/internal/platform/middleware"
	dErrors "hcert/pkg/domain-errors"
	"hcert/pkg/platform/httputil"
)

// New builds an HTTP server with sane defaults for this project.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// NewOpsRouter exposes /health and /metrics. /health runs every check and
// answers 503 when any fails.
func NewOpsRouter(logger *slog.Logger, checks map[string]Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Get("/health", healthHandler(checks))
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

func healthHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}

		httputil.WriteJSON(w, status, body)
	}
}
