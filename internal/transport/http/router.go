// Package httptransport assembles the HTTP surface: feature handlers, shared
// middleware, health, and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credentialhandler "crest/internal/credential/handler"
	identityhandler "crest/internal/identity/handler"
	"crest/internal/platform/middleware"
	"crest/pkg/platform/httputil"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. Nil health checkers are skipped.
type Deps struct {
	Logger      *slog.Logger
	Identity    *identityhandler.Handler
	Credentials *credentialhandler.Handler
	Checks      map[string]HealthChecker
}

// NewRouter wires all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Identity.Register(r)
	deps.Credentials.Register(r)

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range deps.Checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				deps.Logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
