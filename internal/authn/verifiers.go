package authn

import (
	"context"
	"errors"

	"shopgate/internal/credentials"
	"shopgate/internal/principal"
	"shopgate/pkg/problems"
)

// StaffVerifier checks back-office passwords. It only activates for
// attempts tagged with the staff user type.
type StaffVerifier struct {
	Store credentials.StaffStore
}

func (v StaffVerifier) Authenticate(ctx context.Context, a Attempt) (principal.Principal, error) {
	username, err := usernameFor(a, principal.UserTypeStaff)
	if err != nil {
		return principal.Principal{}, err
	}
	rec, err := v.Store.FindStaffByUsername(ctx, username)
	if err != nil {
		return principal.Principal{}, lookupError(err, "authn.StaffVerifier")
	}
	if !rec.Active || !credentials.CheckPassword(rec.PasswordHash, a.Password) {
		return principal.Principal{}, ErrBadCredentials
	}
	return principal.NewStaff(rec.Username, rec.Authorities), nil
}

// ShopperVerifier checks storefront passwords. Only registered customers
// hold a password; everyone else gets bad credentials.
type ShopperVerifier struct {
	Store credentials.ShopperStore
}

func (v ShopperVerifier) Authenticate(ctx context.Context, a Attempt) (principal.Principal, error) {
	username, err := usernameFor(a, principal.UserTypeShopper)
	if err != nil {
		return principal.Principal{}, err
	}
	rec, err := v.Store.FindShopperByUsername(ctx, username)
	if err != nil {
		return principal.Principal{}, lookupError(err, "authn.ShopperVerifier")
	}
	if !rec.Registered || !credentials.CheckPassword(rec.PasswordHash, a.Password) {
		return principal.Principal{}, ErrBadCredentials
	}
	return principal.NewRegistered(rec.Username, rec.Authorities), nil
}

func usernameFor(a Attempt, userType string) (string, error) {
	id, err := principal.ParseIdentity(a.Identity)
	if err != nil {
		return "", err
	}
	if id.UserType != userType {
		return "", ErrNotApplicable
	}
	return id.Username, nil
}

func lookupError(err error, op string) error {
	if errors.Is(err, credentials.ErrNotFound) {
		return ErrBadCredentials
	}
	if problems.CodeOf(err) != problems.EInternal {
		return err
	}
	return problems.Wrap(err, problems.EInternal, op)
}
