package authn

import (
	"context"
	"errors"

	"shopgate/internal/credentials"
	"shopgate/internal/principal"
	"shopgate/pkg/problems"
)

// ErrPrincipalGone is returned when a stored principal no longer exists or
// was disabled after a token was issued for it.
var ErrPrincipalGone = &problems.Error{Code: problems.EInvalidToken, Msg: "principal no longer exists"}

// Loader rebuilds live principals from the credential stores so that
// authorities reflect current state rather than the issued snapshot.
type Loader struct {
	Staff    credentials.StaffStore
	Shoppers credentials.ShopperStore
}

// Load resolves username for the given wire user type. Unknown user types
// return ErrUnknownUserType.
func (l Loader) Load(ctx context.Context, userType, username string) (principal.Principal, error) {
	switch userType {
	case principal.UserTypeStaff:
		rec, err := l.Staff.FindStaffByUsername(ctx, username)
		if err != nil {
			return principal.Principal{}, loadError(err, "authn.Loader.staff")
		}
		if !rec.Active {
			return principal.Principal{}, ErrPrincipalGone
		}
		return principal.NewStaff(rec.Username, rec.Authorities), nil
	case principal.UserTypeShopper:
		rec, err := l.Shoppers.FindShopperByUsername(ctx, username)
		if err != nil {
			return principal.Principal{}, loadError(err, "authn.Loader.shopper")
		}
		if !rec.Registered {
			return principal.NewAnonymous(rec.Username, rec.Authorities), nil
		}
		return principal.NewRegistered(rec.Username, rec.Authorities), nil
	}
	return principal.Principal{}, ErrUnknownUserType
}

func loadError(err error, op string) error {
	if errors.Is(err, credentials.ErrNotFound) {
		return &problems.Error{Code: problems.EInvalidToken, Msg: ErrPrincipalGone.Msg, Op: op, Err: err}
	}
	if problems.CodeOf(err) != problems.EInternal {
		return err
	}
	return problems.Wrap(err, problems.EInternal, op)
}
