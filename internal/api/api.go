// Package api holds the resource routes that consume issued tokens. The
// commerce operations behind them live outside this service; the handlers
// only expose what the identity core knows about the caller.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shopgate/internal/principal"
	"shopgate/internal/tenancy"
	"shopgate/pkg/config"
	"shopgate/pkg/middleware"
	"shopgate/pkg/openapi"
	"shopgate/pkg/problems"
)

// Route pairs an operation description with its handler.
type Route struct {
	Operation openapi.Operation
	Handler   http.HandlerFunc
}

type Handler struct {
	Schemas tenancy.SchemaRouter
	Catalog config.ScopeCatalog
	Log     *zap.SugaredLogger
}

// Routes lists the API operations with their access rules.
func (h *Handler) Routes() []Route {
	kinds := func(k ...principal.Kind) []string {
		out := make([]string, 0, len(k))
		for _, v := range k {
			out = append(out, v.String())
		}
		return out
	}
	return []Route{
		{
			Operation: openapi.Operation{Method: "GET", Path: "/api/v1/me", Summary: "Authenticated principal", Tags: []string{"identity"}},
			Handler:   h.getMe,
		},
		{
			Operation: openapi.Operation{
				Method: "GET", Path: "/api/v1/admin/tenant", Summary: "Tenant of the staff user", Tags: []string{"admin"},
				Scopes: []string{h.Catalog.Staff}, Kinds: kinds(principal.Staff),
			},
			Handler: h.getTenant,
		},
		{
			Operation: openapi.Operation{
				Method: "GET", Path: "/api/v1/cart", Summary: "Cart owner of the shopper", Tags: []string{"cart"},
				Scopes: []string{h.Catalog.Customer, h.Catalog.RegisteredCustomer}, Kinds: kinds(principal.Anonymous, principal.Registered),
			},
			Handler: h.getCart,
		},
		{
			Operation: openapi.Operation{
				Method: "GET", Path: "/api/v1/account", Summary: "Registered customer account", Tags: []string{"account"},
				Scopes: []string{h.Catalog.RegisteredCustomer}, Kinds: kinds(principal.Registered),
			},
			Handler: h.getAccount,
		},
	}
}

// Mount attaches routes to r behind mw.
func Mount(r chi.Router, routes []Route, mw ...func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(mw...)
		for _, rt := range routes {
			g.Method(strings.ToUpper(rt.Operation.Method), rt.Operation.Path, rt.Handler)
		}
	})
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	tenant, _ := tenancy.FromContext(r.Context())
	resp := map[string]any{
		"subject":     p.Subject(),
		"kind":        p.Kind.String(),
		"id":          p.ID,
		"authorities": nonNil(p.Authorities),
		"scopes":      nonNil(middleware.ScopesFrom(r.Context())),
		"tenant":      tenant,
	}
	if c, ok := middleware.ClaimsFrom(r.Context()); ok {
		resp["expires_at"] = c.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenancy.MustFromContext(r.Context())
	if err != nil {
		problems.Write(w, err)
		return
	}
	schema, err := h.Schemas.RouteForCurrentRequest(r.Context())
	if err != nil {
		problems.Write(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"tenant":  tenant,
		"default": tenant.IsDefault(),
		"schema":  schema,
		"scopes":  h.Catalog.All(),
	}, http.StatusOK)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	writeJSON(w, map[string]any{
		"owner":      p.Subject(),
		"registered": p.Kind == principal.Registered,
		"items":      []any{},
	}, http.StatusOK)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	p, _ := principal.FromContext(r.Context())
	h.Log.Debugw("account read", "subject", p.Subject(), "request_id", middleware.RequestIDFrom(r.Context()))
	writeJSON(w, map[string]any{
		"username":    p.ID,
		"authorities": nonNil(p.Authorities),
	}, http.StatusOK)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
