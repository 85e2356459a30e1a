package tenancy

import (
	"context"
	"strings"

	"shopgate/internal/tenantid"
	"shopgate/pkg/problems"
)

// Verifier is the part of the tenant codec the resolver needs.
type Verifier interface {
	Parse(s string) (tenantid.ID, error)
}

// Resolver picks the tenant of a request: explicit header, then the OAuth2
// client id, then the DefaultTenant sentinel.
type Resolver struct {
	codec Verifier
}

func NewResolver(codec Verifier) *Resolver {
	return &Resolver{codec: codec}
}

// Resolve returns the tenant for the given header value and client id.
// An explicit header that fails verification is an error; it never falls
// back to the default tenant.
func (r *Resolver) Resolve(header, clientID string) (tenantid.ID, error) {
	if h := strings.TrimSpace(header); h != "" {
		id, err := r.parse(h)
		if err != nil {
			return "", problems.Wrap(err, problems.EInvalidTenant, "tenancy.Resolve")
		}
		return id, nil
	}
	if c := strings.TrimSpace(clientID); c != "" {
		if id, err := r.parse(c); err == nil {
			return id, nil
		}
		// An unverifiable client id is rejected later by the client
		// registry, which compares it with the tenant resolved here.
	}
	return tenantid.Default, nil
}

func (r *Resolver) parse(s string) (tenantid.ID, error) {
	if s == string(tenantid.Default) {
		return tenantid.Default, nil
	}
	return r.codec.Parse(s)
}

// ClientIDValidator returns a check that the client id of a grant names the
// tenant resolved for the surrounding request.
func (r *Resolver) ClientIDValidator() func(ctx context.Context, clientID string) error {
	return func(ctx context.Context, clientID string) error {
		id, err := MustFromContext(ctx)
		if err != nil {
			return err
		}
		if string(id) != clientID {
			return problems.New(problems.ENoSuchClient, "client does not belong to the requested tenant")
		}
		return nil
	}
}
