package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopgate/internal/api"
	"shopgate/pkg/middleware"
)

const version = "1.0.0"

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.Tracing(a.cfg, a.log))
	r.Use(middleware.WithTenant(a.resolver, a.cfg.TenantHeader, a.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/openapi.json", a.openapi.ServeHandler("shopgate", version, a.catalog.All()))

	a.server.RegisterHTTP(r)
	api.Mount(r, a.routes,
		middleware.BearerAuth(a.tokens, a.metrics, a.log),
		a.policy.Middleware(a.log),
	)
	return r
}
