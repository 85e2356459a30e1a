package authserver

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shopgate/internal/authn"
	"shopgate/internal/credentials"
	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/internal/token"
	"shopgate/pkg/config"
	"shopgate/pkg/logger"
)

const redirectURI = "https://shop.example.com/callback"

type fixture struct {
	t        *testing.T
	tenantA  tenantid.ID
	tenantB  tenantid.ID
	ids      *tenantid.Codec
	store    *credentials.MemoryStore
	schemas  tenancy.SchemaRouter
	resolver *tenancy.Resolver
	tokens   *token.Codec
	server   *Server
	catalog  config.ScopeCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ids, err := tenantid.NewCodec("authserver-test")
	require.NoError(t, err)
	a, err := ids.Generate()
	require.NoError(t, err)
	b, err := ids.Generate()
	require.NoError(t, err)

	schemas := tenancy.NewSchemaRouter("public", "tenant_")
	store := credentials.NewMemoryStore(schemas)
	hash := func(pw string) string {
		h, err := credentials.HashPassword(pw, bcrypt.MinCost)
		require.NoError(t, err)
		return h
	}
	for _, tc := range []struct {
		id    tenantid.ID
		admin string
	}{{a, "admin-a"}, {b, "admin-b"}} {
		schema := schemas.SchemaFor(tc.id)
		store.PutStaff(schema, credentials.StaffRecord{Username: "admin", PasswordHash: hash(tc.admin), Authorities: []string{"ROLE_ADMIN"}, Active: true})
		store.PutShopper(schema, credentials.ShopperRecord{Username: "jane", PasswordHash: hash("jane-pw"), Authorities: []string{"ROLE_CUSTOMER"}, Registered: true})
	}

	loader := authn.Loader{Staff: store, Shoppers: store}
	tokens, err := token.NewCodec(token.Config{
		SigningKey:      []byte("authserver-test-signing-key-0123456789"),
		IssuerPrefix:    "shopgate",
		AccessValidity:  time.Hour,
		RefreshValidity: 24 * time.Hour,
	}, loader)
	require.NoError(t, err)

	catalog := config.DefaultScopeCatalog()
	resolver := tenancy.NewResolver(ids)
	f := &fixture{
		t:        t,
		tenantA:  a,
		tenantB:  b,
		ids:      ids,
		store:    store,
		schemas:  schemas,
		resolver: resolver,
		tokens:   tokens,
		catalog:  catalog,
	}
	f.server = &Server{
		Registry: &Registry{
			Codec:            ids,
			Catalog:          catalog,
			RedirectURIs:     []string{redirectURI},
			AccessValidity:   time.Hour,
			RefreshValidity:  24 * time.Hour,
			ValidateClientID: resolver.ClientIDValidator(),
		},
		Factory:   RequestFactory{Catalog: catalog},
		Validator: ScopeValidator{Catalog: catalog},
		Staff:     authn.StaffVerifier{Store: store},
		Shopper:   authn.ShopperVerifier{Store: store},
		Loader:    loader,
		Tokens:    tokens,
		Codes:     NewMemoryCodeStore(time.Minute, nil),
		Log:       logger.Nop(),
	}
	return f
}

func (f *fixture) ctx(id tenantid.ID) context.Context {
	return tenancy.WithContext(context.Background(), id)
}

func form(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}
