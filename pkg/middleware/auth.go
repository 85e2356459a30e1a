// pkg/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"shopgate/internal/principal"
	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/internal/token"
	"shopgate/pkg/metrics"
	"shopgate/pkg/problems"
)

// TokenDecoder verifies bearer tokens for a tenant.
type TokenDecoder interface {
	Decode(ctx context.Context, raw string, tenant tenantid.ID) (token.Claims, error)
}

var errMissingBearer = &problems.Error{Code: problems.EInvalidToken, Msg: "missing bearer token"}

type ctxClaimsKey struct{}

// BearerAuth decodes the access token of each request against the request's
// tenant and publishes the rehydrated principal and its scopes. Tokens of
// another tenant, refresh tokens and expired tokens are rejected with 401.
func BearerAuth(dec TokenDecoder, m metrics.Metrics, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	if m == nil {
		m = metrics.Noop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(err error) {
				code := problems.CodeOf(err)
				m.IncTokenRejected(code)
				log.Infow("bearer rejected", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "code", code, "reason", problems.MessageOf(err))
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				problems.Write(w, err)
			}

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				reject(errMissingBearer)
				return
			}
			raw := strings.TrimSpace(authz[len("Bearer "):])

			tenant, err := tenancy.MustFromContext(r.Context())
			if err != nil {
				reject(err)
				return
			}
			claims, err := dec.Decode(r.Context(), raw, tenant)
			if err != nil {
				reject(err)
				return
			}
			if claims.Use != token.Access {
				reject(problems.New(problems.EInvalidToken, "refresh tokens cannot be used as bearer tokens"))
				return
			}

			ctx := principal.WithContext(r.Context(), claims.Principal)
			ctx = WithScopes(ctx, claims.Scopes)
			ctx = context.WithValue(ctx, ctxClaimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the decoded token of the request, if any.
func ClaimsFrom(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(ctxClaimsKey{}).(token.Claims)
	return c, ok
}

// ActorSub is the compound subject of the authenticated principal.
func ActorSub(ctx context.Context) string {
	if p, ok := principal.FromContext(ctx); ok {
		return p.Subject()
	}
	return ""
}
