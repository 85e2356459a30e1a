package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgate/internal/principal"
	"shopgate/pkg/logger"
	"shopgate/pkg/middleware"
	"shopgate/pkg/openapi"
)

func newPolicy(t *testing.T) *Policy {
	t.Helper()
	reg := openapi.NewRegistry()
	reg.Register(openapi.Operation{Method: "GET", Path: "/api/v1/me"})
	reg.Register(openapi.Operation{Method: "GET", Path: "/api/v1/admin/tenant", Scopes: []string{"admin"}, Kinds: []string{"staff"}})
	reg.Register(openapi.Operation{Method: "GET", Path: "/api/v1/cart", Scopes: []string{"customer", "customer_registered"}})
	reg.Register(openapi.Operation{Method: "GET", Path: "/api/v1/orders/*", Scopes: []string{"customer_registered"}, Kinds: []string{"registered"}})
	p, err := New(context.Background(), reg.Operations())
	require.NoError(t, err)
	return p
}

func TestDecide(t *testing.T) {
	p := newPolicy(t)
	tests := []struct {
		name   string
		in     Input
		allow  bool
		reason string
	}{
		{name: "open route", in: Input{Method: "GET", Path: "/api/v1/me", Kind: "anonymous"}, allow: true},
		{name: "staff with admin scope", in: Input{Method: "GET", Path: "/api/v1/admin/tenant", Kind: "staff", Scopes: []string{"admin"}}, allow: true},
		{name: "missing scope", in: Input{Method: "GET", Path: "/api/v1/admin/tenant", Kind: "staff", Scopes: []string{"customer"}}, reason: "insufficient scope"},
		{name: "wrong kind", in: Input{Method: "GET", Path: "/api/v1/admin/tenant", Kind: "external", Scopes: []string{"admin"}}, reason: "principal kind is not permitted"},
		{name: "any of scopes", in: Input{Method: "GET", Path: "/api/v1/cart", Kind: "anonymous", Scopes: []string{"customer"}}, allow: true},
		{name: "glob route", in: Input{Method: "GET", Path: "/api/v1/orders/42", Kind: "registered", Scopes: []string{"customer_registered"}}, allow: true},
		{name: "glob does not cross segments", in: Input{Method: "GET", Path: "/api/v1/orders/42/items", Kind: "registered", Scopes: []string{"customer_registered"}}, reason: "route is not registered"},
		{name: "wrong method", in: Input{Method: "POST", Path: "/api/v1/me", Kind: "staff"}, reason: "route is not registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.Decide(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, d.Allow)
			if !tt.allow {
				assert.Equal(t, tt.reason, d.Reason)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	p := newPolicy(t)
	h := p.Middleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(ctx context.Context, path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(context.Background(), "/api/v1/me"))

	staff := principal.WithContext(context.Background(), principal.NewStaff("admin", nil))
	assert.Equal(t, http.StatusForbidden, serve(staff, "/api/v1/admin/tenant"))
	assert.Equal(t, http.StatusNoContent, serve(middleware.WithScopes(staff, []string{"admin"}), "/api/v1/admin/tenant"))
}
