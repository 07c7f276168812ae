// Package httptransport assembles the portal's HTTP surface.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nlportal/internal/authentication"
	"nlportal/internal/platform/metrics"
	"nlportal/pkg/platform/httputil"
	adminmw "nlportal/pkg/platform/middleware/admin"
	authmw "nlportal/pkg/platform/middleware/auth"
	request "nlportal/pkg/platform/middleware/request"
)

// Routes mounts endpoints on a router. Handler Register methods satisfy it
// as method values.
type Routes func(r chi.Router)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config collects what the router needs.
type Config struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Verifier   authentication.Verifier
	AdminToken string
	Health     map[string]HealthCheck

	// Authenticated routes are mounted under /api behind the bearer token
	// middleware, Public under /api without it, and Internal under
	// /api/internal behind the admin token.
	Authenticated []Routes
	Public        []Routes
	Internal      []Routes
}

// NewRouter wires middleware, ops endpoints and the API groups.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		for _, mount := range cfg.Public {
			mount(api)
		}

		api.Group(func(authed chi.Router) {
			authed.Use(authmw.RequireAuth(cfg.Verifier, cfg.Logger))
			for _, mount := range cfg.Authenticated {
				mount(authed)
			}
		})

		if len(cfg.Internal) > 0 {
			api.Route("/internal", func(internal chi.Router) {
				internal.Use(adminmw.RequireAdminToken(cfg.AdminToken, cfg.Logger))
				for _, mount := range cfg.Internal {
					mount(internal)
				}
			})
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
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
