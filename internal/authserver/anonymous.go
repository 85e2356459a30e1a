package authserver

import (
	"context"

	"github.com/google/uuid"

	"shopgate/internal/principal"
	"shopgate/pkg/problems"
)

// AuthorityMapper rewrites the authorities of a freshly granted principal.
// The anonymous authority must survive the mapping: decoding relies on it to
// rebuild shoppers that have no stored record.
type AuthorityMapper func(authorities []string) []string

// AnonymousGranter creates a new anonymous shopper for every call. It never
// consults a credential store.
type AnonymousGranter struct {
	Mapper AuthorityMapper
}

func (g AnonymousGranter) Grant(_ context.Context, client ClientDetails, req TokenRequest) (principal.Principal, error) {
	if req.GrantType != GrantAnonymous || !client.Supports(GrantAnonymous) {
		return principal.Principal{}, problems.New(problems.EUnsupportedGrantType, "grant type %q is not supported", req.GrantType)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return principal.Principal{}, problems.Wrap(err, problems.EInternal, "authserver.AnonymousGranter")
	}
	authorities := []string{principal.AuthorityAnonymous}
	if g.Mapper != nil {
		authorities = g.Mapper(authorities)
	}
	return principal.NewAnonymous(id.String(), authorities), nil
}
