package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgate/internal/principal"
	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/internal/token"
	"shopgate/pkg/logger"
	"shopgate/pkg/problems"
)

type stubResolver struct{ header, clientID string }

func (s *stubResolver) Resolve(header, clientID string) (tenantid.ID, error) {
	s.header, s.clientID = header, clientID
	if header == "bad" {
		return "", problems.New(problems.EInvalidTenant, "invalid tenant identifier")
	}
	if header != "" {
		return tenantid.ID(header), nil
	}
	return tenantid.Default, nil
}

func TestWithTenant(t *testing.T) {
	res := &stubResolver{}
	var got tenantid.ID
	h := WithTenant(res, "X-Shop", logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = tenancy.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me?client_id=abc", nil)
	req.Header.Set("X-Shop", "t1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, tenantid.ID("t1"), got)
	assert.Equal(t, "abc", res.clientID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Shop", "bad")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	got = ""
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Shop", "bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, got)
}

func TestClientID(t *testing.T) {
	body := url.Values{"client_id": {"from-form"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("from-basic", "")
	assert.Equal(t, "from-form", ClientID(req))

	req = httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
	req.SetBasicAuth("from-basic", "")
	assert.Equal(t, "from-basic", ClientID(req))

	assert.Empty(t, ClientID(httptest.NewRequest(http.MethodGet, "/", nil)))
}

type stubDecoder struct {
	claims token.Claims
	err    error
	tenant tenantid.ID
}

func (s *stubDecoder) Decode(_ context.Context, _ string, tenant tenantid.ID) (token.Claims, error) {
	s.tenant = tenant
	return s.claims, s.err
}

func TestBearerAuth(t *testing.T) {
	dec := &stubDecoder{claims: token.Claims{
		Principal: principal.NewStaff("admin", []string{"ROLE_ADMIN"}),
		Scopes:    []string{"admin"},
		Use:       token.Access,
	}}
	var seen principal.Principal
	var scopes []string
	h := BearerAuth(dec, nil, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = principal.FromContext(r.Context())
		scopes = ScopesFrom(r.Context())
		assert.Equal(t, "backoffice/admin", ActorSub(r.Context()))
		_, ok := ClaimsFrom(r.Context())
		assert.True(t, ok)
	}))
	serve := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req = req.WithContext(tenancy.WithContext(req.Context(), "t1"))
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("Bearer abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, principal.Staff, seen.Kind)
	assert.Equal(t, []string{"admin"}, scopes)
	assert.Equal(t, tenantid.ID("t1"), dec.tenant)

	rec = serve("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	rec = serve("Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	dec.claims.Use = token.Refresh
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer abc").Code)

	dec.err = token.ErrWrongTenant
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer abc").Code)
}

func TestRequireScope(t *testing.T) {
	h := RequireScope("admin", "support")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(scopes []string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithScopes(req.Context(), scopes))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, serve([]string{"support"}))
	assert.Equal(t, http.StatusForbidden, serve([]string{"customer"}))
	assert.Equal(t, http.StatusForbidden, serve(nil))
	assert.True(t, HasAnyScope(context.Background(), nil))
}

func TestRecoverAndRequestID(t *testing.T) {
	var id string
	h := RequestID()(Recover(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = RequestIDFrom(r.Context())
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get("X-Request-Id"))
	assert.NotContains(t, rec.Body.String(), "boom")
}
