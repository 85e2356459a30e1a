// Package tenancy resolves the tenant of a request and routes it to a schema.
package tenancy

import (
	"context"

	"shopgate/internal/tenantid"
	"shopgate/pkg/problems"
)

type ctxTenantKey struct{}

// ErrNoTenant is returned when tenant-scoped work runs before the tenant
// middleware published a TenantContext.
var ErrNoTenant = &problems.Error{Code: problems.ENoTenantContext, Msg: "no tenant resolved for request"}

// WithContext publishes the resolved tenant for the rest of the request.
func WithContext(ctx context.Context, id tenantid.ID) context.Context {
	return context.WithValue(ctx, ctxTenantKey{}, id)
}

// FromContext returns the request's tenant.
func FromContext(ctx context.Context) (tenantid.ID, bool) {
	id, ok := ctx.Value(ctxTenantKey{}).(tenantid.ID)
	return id, ok && id != ""
}

// MustFromContext is FromContext returning ErrNoTenant when absent.
func MustFromContext(ctx context.Context) (tenantid.ID, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrNoTenant
	}
	return id, nil
}
