// Package token encodes authenticated principals into signed JWTs stamped
// with their tenant and reconstructs principals from inbound tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jmes "github.com/jmespath/go-jmespath"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"shopgate/internal/credentials"
	"shopgate/internal/principal"
	"shopgate/internal/tenantid"
	"shopgate/pkg/problems"
)

// Use distinguishes access tokens from refresh tokens.
type Use string

const (
	Access  Use = "access"
	Refresh Use = "refresh"
)

const (
	claimAuthorities = "authorities"
	claimScope       = "scope"
	claimClientID    = "client_id"
	claimUse         = "token_use"
)

const minKeyLen = 32

var (
	ErrInvalid       = &problems.Error{Code: problems.EInvalidToken, Msg: "invalid token"}
	ErrWrongTenant   = &problems.Error{Code: problems.EInvalidToken, Msg: "token was issued for another tenant"}
	ErrMalformedSubj = &problems.Error{Code: problems.EInvalidToken, Msg: "token subject is malformed"}
)

// Loader rehydrates stored principals by wire user type.
type Loader interface {
	Load(ctx context.Context, userType, username string) (principal.Principal, error)
}

type Config struct {
	SigningKey      []byte
	IssuerPrefix    string
	AccessValidity  time.Duration
	RefreshValidity time.Duration
	// AuthoritiesPath is a JMESPath expression locating the authorities of
	// principals whose subject names no known user type.
	AuthoritiesPath string
	Now             func() time.Time
}

// Claims is the decoded content of a token.
type Claims struct {
	ID        string
	Principal principal.Principal
	Tenant    tenantid.ID
	ClientID  string
	Scopes    []string
	Use       Use
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	key             []byte
	prefix          string
	accessValidity  time.Duration
	refreshValidity time.Duration
	authorities     *jmes.JMESPath
	loader          Loader
	now             func() time.Time
}

func NewCodec(cfg Config, loader Loader) (*Codec, error) {
	if len(cfg.SigningKey) < minKeyLen {
		return nil, fmt.Errorf("token: signing key must be at least %d bytes", minKeyLen)
	}
	if loader == nil {
		return nil, errors.New("token: nil loader")
	}
	path := cfg.AuthoritiesPath
	if path == "" {
		path = claimAuthorities
	}
	expr, err := jmes.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("token: authorities path %q: %w", path, err)
	}
	c := &Codec{
		key:             cfg.SigningKey,
		prefix:          strings.TrimRight(cfg.IssuerPrefix, "/"),
		accessValidity:  cfg.AccessValidity,
		refreshValidity: cfg.RefreshValidity,
		authorities:     expr,
		loader:          loader,
		now:             cfg.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.accessValidity <= 0 {
		c.accessValidity = time.Hour
	}
	if c.refreshValidity <= 0 {
		c.refreshValidity = 30 * 24 * time.Hour
	}
	return c, nil
}

// Issuer is the iss claim for tokens of tenant.
func (c *Codec) Issuer(tenant tenantid.ID) string { return c.prefix + "/" + string(tenant) }

// Validity returns the lifetime of tokens of the given use.
func (c *Codec) Validity(use Use) time.Duration {
	if use == Refresh {
		return c.refreshValidity
	}
	return c.accessValidity
}

// Encode signs a token for p in tenant and returns it with its expiry.
func (c *Codec) Encode(p principal.Principal, tenant tenantid.ID, scopes []string, use Use) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.Validity(use))
	authorities := p.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(c.Issuer(tenant)).
		Subject(p.Subject()).
		IssuedAt(now).
		Expiration(exp).
		Claim(claimAuthorities, authorities).
		Claim(claimScope, strings.Join(scopes, " ")).
		Claim(claimClientID, string(tenant)).
		Claim(claimUse, string(use)).
		Build()
	if err != nil {
		return "", time.Time{}, problems.Wrap(err, problems.EInternal, "token.Encode")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, c.key))
	if err != nil {
		return "", time.Time{}, problems.Wrap(err, problems.EInternal, "token.Encode")
	}
	return string(signed), exp, nil
}

// Decode verifies raw for tenant and rebuilds its principal. Staff and
// shopper subjects are reloaded from the credential stores; other subjects
// become External principals carrying the authorities found in the claims.
func (c *Codec) Decode(ctx context.Context, raw string, tenant tenantid.ID) (Claims, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, c.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(c.now)),
	)
	if err != nil {
		return Claims{}, &problems.Error{Code: ErrInvalid.Code, Msg: ErrInvalid.Msg, Op: "token.Decode", Err: err}
	}
	if tok.Issuer() != c.Issuer(tenant) {
		return Claims{}, ErrWrongTenant
	}

	out := Claims{
		ID:        tok.JwtID(),
		Tenant:    tenant,
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}
	if v, ok := tok.Get(claimScope); ok {
		out.Scopes = strings.Fields(fmt.Sprint(v))
	}
	if v, ok := tok.Get(claimClientID); ok {
		out.ClientID, _ = v.(string)
	}
	if v, ok := tok.Get(claimUse); ok {
		s, _ := v.(string)
		out.Use = Use(s)
	}
	authorities := stringList(tok.PrivateClaims()[claimAuthorities])

	userType, id, found := strings.Cut(tok.Subject(), "/")
	if !found || userType == "" || id == "" {
		return Claims{}, ErrMalformedSubj
	}

	p, err := c.loader.Load(ctx, userType, id)
	switch {
	case err == nil:
	case problems.CodeOf(err) == problems.EUnknownUserType:
		p, err = c.external(ctx, tok, userType, id)
		if err != nil {
			return Claims{}, err
		}
	case userType == principal.UserTypeShopper && errors.Is(err, credentials.ErrNotFound) &&
		containsString(authorities, principal.AuthorityAnonymous):
		p = principal.NewAnonymous(id, authorities)
	default:
		return Claims{}, err
	}
	out.Principal = p
	return out, nil
}

func (c *Codec) external(ctx context.Context, tok jwt.Token, userType, id string) (principal.Principal, error) {
	m, err := tok.AsMap(ctx)
	if err != nil {
		return principal.Principal{}, &problems.Error{Code: ErrInvalid.Code, Msg: ErrInvalid.Msg, Op: "token.external", Err: err}
	}
	v, err := c.authorities.Search(m)
	if err != nil {
		return principal.Principal{}, &problems.Error{Code: ErrInvalid.Code, Msg: ErrInvalid.Msg, Op: "token.external", Err: err}
	}
	return principal.Principal{Kind: principal.External, ID: id, UserType: userType, Authorities: stringList(v)}, nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Fields(t)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
