package authserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgate/pkg/problems"
)

func TestCreateAuthorizationRequestRequiresScope(t *testing.T) {
	f := newFixture(t)
	for _, scope := range []string{"", "   "} {
		_, err := f.server.Factory.CreateAuthorizationRequest(form("response_type", "code", "scope", scope, "username", "backoffice/admin"))
		require.Error(t, err)
		assert.Equal(t, problems.EMissingScope, problems.CodeOf(err))
	}

	req, err := f.server.Factory.CreateAuthorizationRequest(form("response_type", "token", "scope", "customer customer", "state", "xyz"))
	require.NoError(t, err)
	assert.Equal(t, []string{"customer"}, req.Scopes)
	assert.Equal(t, "xyz", req.State)
}

func TestCreateTokenRequestDefaultsScope(t *testing.T) {
	f := newFixture(t)
	client, err := f.server.Registry.Lookup(f.ctx(f.tenantA), string(f.tenantA))
	require.NoError(t, err)

	tests := []struct {
		name      string
		username  string
		scope     string
		want      []string
		defaulted bool
	}{
		{name: "staff default", username: "backoffice/admin", want: []string{"admin"}, defaulted: true},
		{name: "shopper default", username: "site/jane", want: []string{"customer_registered"}, defaulted: true},
		{name: "leading slash", username: "/site/jane", want: []string{"customer_registered"}, defaulted: true},
		{name: "unknown user type", username: "partner/acme", want: nil},
		{name: "malformed", username: "jane", want: nil},
		{name: "no username", username: "", want: nil},
		{name: "explicit scope wins", username: "backoffice/admin", scope: "customer", want: []string{"customer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := f.server.Factory.CreateTokenRequest(form("grant_type", "password", "username", tt.username, "scope", tt.scope), client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Scopes)
			assert.Equal(t, tt.defaulted, req.ScopeDefaulted)
			assert.Equal(t, string(f.tenantA), req.ClientID)
		})
	}
}

func TestCreateTokenRequestRejects(t *testing.T) {
	f := newFixture(t)
	client, err := f.server.Registry.Lookup(f.ctx(f.tenantA), string(f.tenantA))
	require.NoError(t, err)

	_, err = f.server.Factory.CreateTokenRequest(form("username", "site/jane"), client)
	assert.Equal(t, problems.EInvalidRequest, problems.CodeOf(err))

	_, err = f.server.Factory.CreateTokenRequest(form("grant_type", "password", "scope", "superuser"), client)
	assert.Equal(t, problems.EMissingScope, problems.CodeOf(err))
}
