package authserver

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"shopgate/internal/authn"
	"shopgate/internal/principal"
	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/internal/token"
	"shopgate/pkg/metrics"
	"shopgate/pkg/problems"
)

var tracer = otel.Tracer("shopgate/authserver")

// Loader rehydrates principals for code exchange.
type Loader interface {
	Load(ctx context.Context, userType, username string) (principal.Principal, error)
}

// Server runs the grant pipeline: client lookup, request factory,
// authentication, scope validation and token issuance.
type Server struct {
	Registry  *Registry
	Factory   RequestFactory
	Validator ScopeValidator
	Anonymous AnonymousGranter
	// Staff and Shopper verify passwords. A dispatcher bound to the tenant of
	// each request routes attempts to them.
	Staff   authn.Authenticator
	Shopper authn.Authenticator
	Loader  Loader
	Tokens  *token.Codec
	Codes   CodeStore
	Metrics metrics.Metrics
	Log     *zap.SugaredLogger
}

// TokenResponse is the token endpoint's success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
	Tenant       string `json:"tenant"`
}

func (s *Server) authenticator(tenant tenantid.ID) authn.Authenticator {
	return authn.Chain{authn.Dispatcher{ClientID: string(tenant), Staff: s.Staff, Shopper: s.Shopper}}
}

// Token handles a token endpoint request for clientID.
func (s *Server) Token(ctx context.Context, params url.Values, clientID string) (TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "authserver.Token")
	defer span.End()

	resp, grantType, err := s.token(ctx, params, clientID)
	span.SetAttributes(attribute.String("oauth.grant_type", grantType))
	if err != nil {
		code := problems.CodeOf(err)
		span.SetStatus(codes.Error, code)
		s.metrics().IncTokenRejected(code)
		s.logRejection(ctx, "token", grantType, err)
		return TokenResponse{}, err
	}
	s.metrics().IncTokensIssued(grantType)
	return resp, nil
}

func (s *Server) token(ctx context.Context, params url.Values, clientID string) (TokenResponse, string, error) {
	grantType := params.Get("grant_type")
	tenant, err := tenancy.MustFromContext(ctx)
	if err != nil {
		return TokenResponse{}, grantType, err
	}
	client, err := s.Registry.Lookup(ctx, clientID)
	if err != nil {
		return TokenResponse{}, grantType, err
	}
	req, err := s.Factory.CreateTokenRequest(params, client)
	if err != nil {
		return TokenResponse{}, grantType, err
	}
	if req.GrantType == GrantImplicit || !client.Supports(req.GrantType) {
		return TokenResponse{}, grantType, problems.New(problems.EUnsupportedGrantType, "grant type %q is not supported", req.GrantType)
	}

	var (
		p      principal.Principal
		scopes = req.Scopes
	)
	switch req.GrantType {
	case GrantPassword:
		p, err = s.password(ctx, tenant, req)
	case GrantAnonymous:
		p, err = s.Anonymous.Grant(ctx, client, req)
	case GrantAuthorizationCode:
		p, scopes, err = s.exchangeCode(ctx, client, req)
	case GrantRefreshToken:
		p, scopes, err = s.refresh(ctx, client, req)
	}
	if err != nil {
		return TokenResponse{}, grantType, err
	}
	if err := s.Validator.Validate(p, scopes); err != nil {
		return TokenResponse{}, grantType, err
	}

	resp, err := s.issue(p, client.Tenant, scopes, p.Kind != principal.Anonymous)
	if err != nil {
		return TokenResponse{}, grantType, err
	}
	s.Log.Infow("token issued",
		"tenant", client.Tenant,
		"grant_type", req.GrantType,
		"kind", p.Kind.String(),
		"subject", p.Subject(),
		"scope", resp.Scope,
	)
	return resp, grantType, nil
}

func (s *Server) password(ctx context.Context, tenant tenantid.ID, req TokenRequest) (principal.Principal, error) {
	if req.Username == "" {
		return principal.Principal{}, problems.New(problems.EInvalidRequest, "username is required")
	}
	p, err := s.authenticator(tenant).Authenticate(ctx, authn.Attempt{
		Identity: req.Username,
		Password: req.Password,
		ClientID: req.ClientID,
	})
	if errors.Is(err, authn.ErrNotApplicable) {
		return principal.Principal{}, authn.ErrBadCredentials
	}
	return p, err
}

func (s *Server) exchangeCode(ctx context.Context, client ClientDetails, req TokenRequest) (principal.Principal, []string, error) {
	c, err := s.Codes.Take(ctx, req.Code)
	if err != nil {
		return principal.Principal{}, nil, err
	}
	if c.ClientID != client.ClientID || c.Tenant != string(client.Tenant) {
		return principal.Principal{}, nil, ErrInvalidCode
	}
	if c.RedirectURI != req.RedirectURI {
		return principal.Principal{}, nil, problems.New(problems.EInvalidGrant, "redirect_uri does not match the authorization request")
	}
	p, err := s.Loader.Load(ctx, c.UserType, c.Username)
	if err != nil {
		return principal.Principal{}, nil, &problems.Error{Code: problems.EInvalidGrant, Msg: "principal is no longer available", Op: "authserver.exchangeCode", Err: err}
	}
	return p, c.Scopes, nil
}

func (s *Server) refresh(ctx context.Context, client ClientDetails, req TokenRequest) (principal.Principal, []string, error) {
	if req.RefreshToken == "" {
		return principal.Principal{}, nil, problems.New(problems.EInvalidRequest, "refresh_token is required")
	}
	claims, err := s.Tokens.Decode(ctx, req.RefreshToken, client.Tenant)
	if err != nil {
		return principal.Principal{}, nil, &problems.Error{Code: problems.EInvalidGrant, Msg: "refresh token is invalid", Op: "authserver.refresh", Err: err}
	}
	if claims.Use != token.Refresh {
		return principal.Principal{}, nil, problems.New(problems.EInvalidGrant, "not a refresh token")
	}
	if claims.ClientID != client.ClientID {
		return principal.Principal{}, nil, problems.New(problems.EInvalidGrant, "refresh token was issued to another client")
	}
	scopes := claims.Scopes
	if len(req.Scopes) > 0 && !req.ScopeDefaulted {
		for _, sc := range req.Scopes {
			if !slices.Contains(claims.Scopes, sc) {
				return principal.Principal{}, nil, problems.New(problems.EMissingScope, "scope %q exceeds the original grant", sc)
			}
		}
		scopes = req.Scopes
	}
	return claims.Principal, scopes, nil
}

func (s *Server) issue(p principal.Principal, tenant tenantid.ID, scopes []string, withRefresh bool) (TokenResponse, error) {
	access, _, err := s.Tokens.Encode(p, tenant, scopes, token.Access)
	if err != nil {
		return TokenResponse{}, err
	}
	resp := TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.Tokens.Validity(token.Access) / time.Second),
		Scope:       strings.Join(scopes, " "),
		Tenant:      string(tenant),
	}
	if withRefresh {
		refresh, _, err := s.Tokens.Encode(p, tenant, scopes, token.Refresh)
		if err != nil {
			return TokenResponse{}, err
		}
		resp.RefreshToken = refresh
	}
	return resp, nil
}

// Authorize handles the authorization endpoint. Once the redirect target is
// known, failures are reported through it: the returned location carries the
// error and the error is returned as well. Earlier failures return no
// location.
func (s *Server) Authorize(ctx context.Context, params url.Values, clientID string) (string, error) {
	ctx, span := tracer.Start(ctx, "authserver.Authorize")
	defer span.End()

	location, grantType, err := s.authorize(ctx, params, clientID)
	span.SetAttributes(attribute.String("oauth.grant_type", grantType))
	if err != nil {
		code := problems.CodeOf(err)
		span.SetStatus(codes.Error, code)
		s.metrics().IncTokenRejected(code)
		s.logRejection(ctx, "authorize", grantType, err)
		return location, err
	}
	if grantType == GrantImplicit {
		s.metrics().IncTokensIssued(grantType)
	}
	return location, nil
}

func (s *Server) authorize(ctx context.Context, params url.Values, clientID string) (string, string, error) {
	tenant, err := tenancy.MustFromContext(ctx)
	if err != nil {
		return "", "", err
	}
	client, err := s.Registry.Lookup(ctx, clientID)
	if err != nil {
		return "", "", err
	}
	redirect, err := redirectTarget(client, params.Get("redirect_uri"))
	if err != nil {
		return "", "", err
	}

	var grantType string
	switch params.Get("response_type") {
	case "code":
		grantType = GrantAuthorizationCode
	case "token":
		grantType = GrantImplicit
	default:
		return "", "", problems.New(problems.EInvalidRequest, "response_type must be code or token")
	}
	state := params.Get("state")
	fail := func(err error) (string, string, error) {
		return errorRedirect(redirect, grantType == GrantImplicit, state, err), grantType, err
	}

	req, err := s.Factory.CreateAuthorizationRequest(params)
	if err != nil {
		return fail(err)
	}
	for _, sc := range req.Scopes {
		if !client.HasScope(sc) {
			return fail(problems.New(problems.EMissingScope, "scope %q is not available to this client", sc))
		}
	}
	if !client.Supports(grantType) {
		return fail(problems.New(problems.EUnsupportedGrantType, "grant type %q is not supported", grantType))
	}

	id, err := principal.ParseIdentity(params.Get("username"))
	if err != nil {
		return fail(err)
	}
	p, err := s.authenticator(tenant).Authenticate(ctx, authn.Attempt{
		Identity: id.String(),
		Password: params.Get("password"),
		ClientID: client.ClientID,
	})
	if errors.Is(err, authn.ErrNotApplicable) {
		err = authn.ErrBadCredentials
	}
	if err != nil {
		return fail(err)
	}
	if err := s.Validator.Validate(p, req.Scopes); err != nil {
		return fail(err)
	}

	scope := strings.Join(req.Scopes, " ")
	if grantType == GrantAuthorizationCode {
		code, err := s.Codes.Save(ctx, AuthorizationCode{
			ClientID:    client.ClientID,
			Tenant:      string(client.Tenant),
			RedirectURI: params.Get("redirect_uri"),
			UserType:    p.WireUserType(),
			Username:    p.ID,
			Scopes:      req.Scopes,
		})
		if err != nil {
			return fail(err)
		}
		q := redirect.Query()
		q.Set("code", code)
		if state != "" {
			q.Set("state", state)
		}
		redirect.RawQuery = q.Encode()
		s.Log.Infow("authorization code issued", "tenant", client.Tenant, "subject", p.Subject(), "scope", scope)
		return redirect.String(), grantType, nil
	}

	resp, err := s.issue(p, client.Tenant, req.Scopes, false)
	if err != nil {
		return fail(err)
	}
	frag := url.Values{}
	frag.Set("access_token", resp.AccessToken)
	frag.Set("token_type", resp.TokenType)
	frag.Set("expires_in", strconv.FormatInt(resp.ExpiresIn, 10))
	frag.Set("scope", scope)
	if state != "" {
		frag.Set("state", state)
	}
	redirect.Fragment = frag.Encode()
	s.Log.Infow("token issued", "tenant", client.Tenant, "grant_type", grantType, "kind", p.Kind.String(), "subject", p.Subject(), "scope", scope)
	return redirect.String(), grantType, nil
}

// redirectTarget resolves the redirect uri against the client registration.
// An omitted uri is accepted only when exactly one is registered.
func redirectTarget(client ClientDetails, raw string) (*url.URL, error) {
	if raw == "" {
		if len(client.RedirectURIs) != 1 {
			return nil, problems.New(problems.EInvalidRequest, "redirect_uri is required")
		}
		raw = client.RedirectURIs[0]
	} else if !slices.Contains(client.RedirectURIs, raw) {
		return nil, problems.New(problems.EInvalidRequest, "redirect_uri is not registered")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return nil, problems.New(problems.EInvalidRequest, "redirect_uri is not an absolute uri")
	}
	return u, nil
}

func errorRedirect(target *url.URL, fragment bool, state string, err error) string {
	u := *target
	v := url.Values{}
	v.Set("error", problems.CodeOf(err))
	v.Set("error_description", problems.MessageOf(err))
	if state != "" {
		v.Set("state", state)
	}
	if fragment {
		u.Fragment = v.Encode()
	} else {
		q := u.Query()
		for k, vals := range v {
			q[k] = vals
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (s *Server) metrics() metrics.Metrics {
	if s.Metrics == nil {
		return metrics.Noop{}
	}
	return s.Metrics
}

func (s *Server) logRejection(ctx context.Context, endpoint, grantType string, err error) {
	tenant, _ := tenancy.FromContext(ctx)
	code := problems.CodeOf(err)
	if code == problems.EInternal {
		s.Log.Errorw("grant failed", "endpoint", endpoint, "tenant", tenant, "grant_type", grantType, "err", err)
		return
	}
	s.Log.Infow("grant rejected", "endpoint", endpoint, "tenant", tenant, "grant_type", grantType, "code", code, "reason", problems.MessageOf(err))
}
