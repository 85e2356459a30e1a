// pkg/middleware/tenant.go
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/pkg/problems"
)

// TenantResolver picks the tenant of a request.
type TenantResolver interface {
	Resolve(header, clientID string) (tenantid.ID, error)
}

// WithTenant resolves the tenant of every request and publishes it in the
// request context before any handler runs. An invalid explicit tenant is
// rejected with 400.
func WithTenant(res TenantResolver, header string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	if header == "" {
		header = "X-Tenant-ID"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Allow health/metrics without tenant context
			switch r.URL.Path {
			case "/healthz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}
			id, err := res.Resolve(r.Header.Get(header), ClientID(r))
			if err != nil {
				log.Infow("tenant rejected", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "code", problems.CodeOf(err))
				problems.Write(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithContext(r.Context(), id)))
		})
	}
}

// ClientID returns the OAuth2 client id of a request: the client_id
// parameter, else the HTTP Basic username.
func ClientID(r *http.Request) string {
	if v := strings.TrimSpace(r.FormValue("client_id")); v != "" {
		return v
	}
	if u, _, ok := r.BasicAuth(); ok {
		return strings.TrimSpace(u)
	}
	return ""
}
