package tenancy

import (
	"context"
	"strings"

	"shopgate/internal/tenantid"
)

// SchemaRouter maps the request's tenant to a persistence schema.
// Results are recomputed on every call and never memoized.
type SchemaRouter struct {
	DefaultSchema string
	Prefix        string
}

func NewSchemaRouter(defaultSchema, prefix string) SchemaRouter {
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return SchemaRouter{DefaultSchema: defaultSchema, Prefix: prefix}
}

// RouteForCurrentRequest is consulted by stores when they acquire a session.
func (s SchemaRouter) RouteForCurrentRequest(ctx context.Context) (string, error) {
	id, err := MustFromContext(ctx)
	if err != nil {
		return "", err
	}
	return s.SchemaFor(id), nil
}

// SchemaFor returns the schema of a tenant.
func (s SchemaRouter) SchemaFor(id tenantid.ID) string {
	if id.IsDefault() {
		return s.DefaultSchema
	}
	return s.Prefix + strings.ToLower(id.Key())
}
