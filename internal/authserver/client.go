// Package authserver is the OAuth2-style authorization server: it
// synthesizes client records from tenant identifiers, builds and validates
// grant requests and issues tenant-stamped tokens.
package authserver

import (
	"context"
	"slices"
	"time"

	"shopgate/internal/tenantid"
	"shopgate/pkg/config"
	"shopgate/pkg/problems"
)

// Grant types.
const (
	GrantPassword          = "password"
	GrantAnonymous         = "anonymous"
	GrantImplicit          = "implicit"
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

var grantTypes = []string{GrantPassword, GrantAnonymous, GrantImplicit, GrantAuthorizationCode, GrantRefreshToken}

// ErrNoSuchClient covers unknown client ids and client ids of another tenant.
var ErrNoSuchClient = &problems.Error{Code: problems.ENoSuchClient, Msg: "unknown client"}

// ClientDetails is the registration record synthesized for a tenant.
type ClientDetails struct {
	ClientID             string
	Tenant               tenantid.ID
	Scopes               []string
	GrantTypes           []string
	RedirectURIs         []string
	AccessTokenValidity  time.Duration
	RefreshTokenValidity time.Duration
}

// Supports reports whether the client may use grantType.
func (c ClientDetails) Supports(grantType string) bool { return slices.Contains(c.GrantTypes, grantType) }

// HasScope reports whether scope is part of the client's catalog.
func (c ClientDetails) HasScope(scope string) bool { return slices.Contains(c.Scopes, scope) }

// Registry builds ClientDetails on demand. Every tenant gets the same scopes
// and grant types.
type Registry struct {
	Codec           interface{ Parse(string) (tenantid.ID, error) }
	Catalog         config.ScopeCatalog
	RedirectURIs    []string
	AccessValidity  time.Duration
	RefreshValidity time.Duration
	// ValidateClientID, when set, rejects client ids that do not belong to
	// the tenant of the surrounding request.
	ValidateClientID func(ctx context.Context, clientID string) error
}

// Lookup returns the record of clientID or ErrNoSuchClient.
func (r *Registry) Lookup(ctx context.Context, clientID string) (ClientDetails, error) {
	if clientID == "" {
		return ClientDetails{}, problems.New(problems.ENoSuchClient, "client id is required")
	}
	tenant := tenantid.Default
	if clientID != string(tenantid.Default) {
		id, err := r.Codec.Parse(clientID)
		if err != nil {
			return ClientDetails{}, &problems.Error{Code: ErrNoSuchClient.Code, Msg: ErrNoSuchClient.Msg, Op: "authserver.Lookup", Err: err}
		}
		tenant = id
	}
	if r.ValidateClientID != nil {
		if err := r.ValidateClientID(ctx, clientID); err != nil {
			if problems.CodeOf(err) == problems.ENoSuchClient {
				return ClientDetails{}, err
			}
			return ClientDetails{}, &problems.Error{Code: ErrNoSuchClient.Code, Msg: ErrNoSuchClient.Msg, Op: "authserver.Lookup", Err: err}
		}
	}
	return ClientDetails{
		ClientID:             clientID,
		Tenant:               tenant,
		Scopes:               r.Catalog.All(),
		GrantTypes:           slices.Clone(grantTypes),
		RedirectURIs:         slices.Clone(r.RedirectURIs),
		AccessTokenValidity:  r.AccessValidity,
		RefreshTokenValidity: r.RefreshValidity,
	}, nil
}
