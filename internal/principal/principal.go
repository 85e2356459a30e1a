// Package principal models the authenticated identity of a request.
//
// A Principal is a tagged variant: anonymous shopper, registered shopper,
// staff user, or an external principal reconstructed from a token whose
// subject names no known user type. The compound "usertype/username" string
// only exists at the wire boundary (login payloads and token subjects).
package principal

import (
	"context"
	"slices"
)

// Kind tags the Principal variant.
type Kind int

const (
	Anonymous Kind = iota + 1
	Registered
	Staff
	External
)

func (k Kind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case Registered:
		return "registered"
	case Staff:
		return "staff"
	case External:
		return "external"
	}
	return "unknown"
}

// User types used on the wire.
const (
	UserTypeStaff   = "backoffice"
	UserTypeShopper = "site"
)

// AuthorityAnonymous marks shoppers that have no stored credential.
const AuthorityAnonymous = "ROLE_ANONYMOUS"

// Principal is an authenticated identity.
type Principal struct {
	Kind        Kind
	ID          string
	Authorities []string
	// UserType is kept for External principals; it is derived for the others.
	UserType string
}

// NewAnonymous builds an anonymous shopper.
func NewAnonymous(id string, authorities []string) Principal {
	return Principal{Kind: Anonymous, ID: id, Authorities: authorities}
}

// NewRegistered builds a registered shopper.
func NewRegistered(id string, authorities []string) Principal {
	return Principal{Kind: Registered, ID: id, Authorities: authorities}
}

// NewStaff builds a staff principal.
func NewStaff(id string, authorities []string) Principal {
	return Principal{Kind: Staff, ID: id, Authorities: authorities}
}

// IsShopper reports whether p is either shopper variant.
func (p Principal) IsShopper() bool { return p.Kind == Anonymous || p.Kind == Registered }

// IsZero reports whether p is unset.
func (p Principal) IsZero() bool { return p.Kind == 0 && p.ID == "" }

// WireUserType is the user type prefix used in token subjects.
func (p Principal) WireUserType() string {
	switch p.Kind {
	case Staff:
		return UserTypeStaff
	case Anonymous, Registered:
		return UserTypeShopper
	}
	return p.UserType
}

// Subject is the compound "usertype/id" form.
func (p Principal) Subject() string {
	return Identity{UserType: p.WireUserType(), Username: p.ID}.String()
}

// HasAuthority reports whether p carries a.
func (p Principal) HasAuthority(a string) bool { return slices.Contains(p.Authorities, a) }

type ctxPrincipalKey struct{}

// WithContext attaches p to ctx.
func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// FromContext returns the principal of the current request, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipalKey{}).(Principal)
	return p, ok && !p.IsZero()
}
