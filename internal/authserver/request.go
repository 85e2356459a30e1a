package authserver

import (
	"net/url"
	"slices"
	"strings"

	"shopgate/internal/principal"
	"shopgate/pkg/config"
	"shopgate/pkg/problems"
)

// ErrMissingScope is returned when an authorization request names no scope.
var ErrMissingScope = &problems.Error{Code: problems.EMissingScope, Msg: "scope is required"}

// TokenRequest is a grant presented to the token endpoint.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	Scopes       []string
	Username     string
	Password     string
	Code         string
	RedirectURI  string
	RefreshToken string
	// ScopeDefaulted is true when Scopes was derived from the username.
	ScopeDefaulted bool
}

// AuthorizationRequest is a request to the authorization endpoint.
type AuthorizationRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	State        string
	Scopes       []string
}

// RequestFactory builds grant requests from form parameters.
type RequestFactory struct {
	Catalog config.ScopeCatalog
}

// CreateAuthorizationRequest never defaults the scope.
func (f RequestFactory) CreateAuthorizationRequest(params url.Values) (AuthorizationRequest, error) {
	scopes := parseScope(params.Get("scope"))
	if len(scopes) == 0 {
		return AuthorizationRequest{}, ErrMissingScope
	}
	return AuthorizationRequest{
		ResponseType: params.Get("response_type"),
		ClientID:     params.Get("client_id"),
		RedirectURI:  params.Get("redirect_uri"),
		State:        params.Get("state"),
		Scopes:       scopes,
	}, nil
}

// CreateTokenRequest derives one scope from the user type of the username
// when the caller sent none. Unknown or unparseable user types leave the
// scope empty for the validator to reject.
func (f RequestFactory) CreateTokenRequest(params url.Values, client ClientDetails) (TokenRequest, error) {
	req := TokenRequest{
		GrantType:    params.Get("grant_type"),
		ClientID:     client.ClientID,
		Scopes:       parseScope(params.Get("scope")),
		Username:     params.Get("username"),
		Password:     params.Get("password"),
		Code:         params.Get("code"),
		RedirectURI:  params.Get("redirect_uri"),
		RefreshToken: params.Get("refresh_token"),
	}
	if req.GrantType == "" {
		return TokenRequest{}, problems.New(problems.EInvalidRequest, "grant_type is required")
	}
	if len(req.Scopes) == 0 {
		if s := f.defaultScope(req.Username); s != "" {
			req.Scopes = []string{s}
			req.ScopeDefaulted = true
		}
	}
	for _, s := range req.Scopes {
		if !client.HasScope(s) {
			return TokenRequest{}, problems.New(problems.EMissingScope, "scope %q is not available to this client", s)
		}
	}
	return req, nil
}

func (f RequestFactory) defaultScope(username string) string {
	if username == "" {
		return ""
	}
	id, err := principal.ParseIdentity(username)
	if err != nil {
		return ""
	}
	switch id.UserType {
	case principal.UserTypeStaff:
		return f.Catalog.Staff
	case principal.UserTypeShopper:
		return f.Catalog.RegisteredCustomer
	}
	return ""
}

// parseScope splits a space-delimited scope parameter, dropping duplicates.
func parseScope(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
