// Package authn routes login attempts to the credential verifier of the
// declared user type and rehydrates principals from stored credentials.
package authn

import (
	"context"
	"errors"

	"shopgate/internal/principal"
	"shopgate/pkg/problems"
)

var (
	// ErrNotApplicable means an authenticator does not handle the attempt.
	// Composite authenticators skip it and try the next one.
	ErrNotApplicable = &problems.Error{Code: problems.EInvalidGrant, Msg: "authentication not applicable"}

	// ErrBadCredentials hides whether the user or the password was wrong.
	ErrBadCredentials = &problems.Error{Code: problems.EInvalidGrant, Msg: "bad credentials"}

	ErrUnknownUserType = &problems.Error{Code: problems.EUnknownUserType, Msg: "unknown user type"}
)

// Attempt is a password login. Identity is the compound "usertype/username".
type Attempt struct {
	Identity string
	Password string
	ClientID string
}

type Authenticator interface {
	Authenticate(ctx context.Context, a Attempt) (principal.Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, a Attempt) (principal.Principal, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, a Attempt) (principal.Principal, error) {
	return f(ctx, a)
}

// Dispatcher parses the compound identity and hands the attempt to the
// verifier of its user type. It is bound to one client: attempts naming
// another client are not applicable, so several tenant-bound dispatchers can
// share a Chain.
type Dispatcher struct {
	ClientID string
	Staff    Authenticator
	Shopper  Authenticator
}

func (d Dispatcher) Authenticate(ctx context.Context, a Attempt) (principal.Principal, error) {
	if a.ClientID != "" && a.ClientID != d.ClientID {
		return principal.Principal{}, ErrNotApplicable
	}
	id, err := principal.ParseIdentity(a.Identity)
	if err != nil {
		return principal.Principal{}, err
	}
	switch id.UserType {
	case principal.UserTypeStaff:
		return d.Staff.Authenticate(ctx, a)
	case principal.UserTypeShopper:
		return d.Shopper.Authenticate(ctx, a)
	}
	return principal.Principal{}, ErrUnknownUserType
}

// Chain tries authenticators in order and returns the first applicable result.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, a Attempt) (principal.Principal, error) {
	for _, auth := range c {
		p, err := auth.Authenticate(ctx, a)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		return p, err
	}
	return principal.Principal{}, ErrNotApplicable
}
