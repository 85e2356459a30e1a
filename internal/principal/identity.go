package principal

import (
	"strings"

	"shopgate/pkg/problems"
)

// Identity is the parsed form of a "usertype/username" string.
type Identity struct {
	UserType string
	Username string
}

func (i Identity) String() string { return i.UserType + "/" + i.Username }

// ErrMalformedIdentity is returned when a compound identity does not have
// exactly two non-empty segments.
var ErrMalformedIdentity = &problems.Error{Code: problems.EMalformedIdentity, Msg: "identity must be of the form usertype/username"}

// ParseIdentity splits s into user type and username. A single leading or
// trailing slash is tolerated; anything else that does not leave exactly two
// non-empty segments is rejected.
func ParseIdentity(s string) (Identity, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 1 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, ErrMalformedIdentity
	}
	return Identity{UserType: parts[0], Username: parts[1]}, nil
}
