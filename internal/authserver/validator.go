package authserver

import (
	"shopgate/internal/principal"
	"shopgate/pkg/config"
	"shopgate/pkg/problems"
)

var (
	ErrNotCustomer           = &problems.Error{Code: problems.EInsufficientAuthentication, Msg: "not logged in as a customer"}
	ErrNotRegisteredCustomer = &problems.Error{Code: problems.EInsufficientAuthentication, Msg: "not logged in as a registered customer"}
	ErrNotStaff              = &problems.Error{Code: problems.EInsufficientAuthentication, Msg: "not logged in as an admin user"}
)

// ScopeValidator checks that the principal kind may hold every requested
// scope. It runs on every grant, refreshes included.
type ScopeValidator struct {
	Catalog config.ScopeCatalog
}

func (v ScopeValidator) Validate(p principal.Principal, scopes []string) error {
	if len(scopes) == 0 {
		return ErrMissingScope
	}
	for _, s := range scopes {
		switch s {
		case v.Catalog.Customer:
			if !p.IsShopper() {
				return ErrNotCustomer
			}
		case v.Catalog.RegisteredCustomer:
			if !p.IsShopper() {
				return ErrNotCustomer
			}
			if p.Kind != principal.Registered {
				return ErrNotRegisteredCustomer
			}
		case v.Catalog.Staff:
			if p.Kind != principal.Staff {
				return ErrNotStaff
			}
		}
	}
	return nil
}
