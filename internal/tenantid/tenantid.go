// Package tenantid issues and verifies self-authenticating tenant identifiers.
//
// An identifier is 56 lowercase hex characters: the 16 bytes of a random UUID
// followed by the first 12 bytes of HMAC-SHA256(secret, uuid). It is URL-safe,
// doubles as the OAuth2 client id of the tenant and its UUID half names the
// tenant's schema.
package tenantid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"shopgate/pkg/problems"
)

// Default is the DefaultTenant sentinel used by single-tenant deployments and
// unauthenticated discovery calls. It never verifies as a signed identifier.
const Default ID = "default"

const (
	idBytes  = 16
	macBytes = 12
	// Length is the length of an encoded identifier.
	Length = 2 * (idBytes + macBytes)
)

// ErrInvalid is returned for forged, mutated or malformed identifiers.
var ErrInvalid = &problems.Error{Code: problems.EInvalidTenant, Msg: "invalid tenant identifier"}

// ID is an opaque tenant identifier.
type ID string

func (id ID) String() string { return string(id) }

// IsDefault reports whether id is the DefaultTenant sentinel.
func (id ID) IsDefault() bool { return id == Default }

// Key returns the hex of the identifier's UUID part; stable per tenant and
// safe to embed in schema names. The sentinel returns itself.
func (id ID) Key() string {
	if len(id) != Length {
		return string(id)
	}
	return string(id[:2*idBytes])
}

// Codec generates and verifies identifiers with a process-wide secret.
// It is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec keyed with secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("tenantid: empty secret")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Generate returns a fresh identifier.
func (c *Codec) Generate() (ID, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	raw := make([]byte, 0, idBytes+macBytes)
	raw = append(raw, u[:]...)
	raw = append(raw, c.mac(u[:])...)
	return ID(hex.EncodeToString(raw)), nil
}

// Verify checks the embedded signature of s.
func (c *Codec) Verify(s string) error {
	_, err := c.Parse(s)
	return err
}

// Parse verifies s and returns it as an ID.
func (c *Codec) Parse(s string) (ID, error) {
	if len(s) != Length {
		return "", ErrInvalid
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", ErrInvalid
	}
	// Upper-case hex decodes too; only the canonical form is accepted.
	if hex.EncodeToString(raw) != s {
		return "", ErrInvalid
	}
	if !hmac.Equal(raw[idBytes:], c.mac(raw[:idBytes])) {
		return "", ErrInvalid
	}
	return ID(s), nil
}

func (c *Codec) mac(b []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(b)
	return h.Sum(nil)[:macBytes]
}
