// Package credentials defines the credential stores the identity core
// consumes and provides in-memory and PostgreSQL implementations. Stores are
// tenant-scoped through the request context: every lookup asks the schema
// router where the current tenant lives.
package credentials

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when no record matches the username.
var ErrNotFound = errors.New("credentials: not found")

// StaffRecord is a back-office user.
type StaffRecord struct {
	Username     string
	PasswordHash string
	Authorities  []string
	Active       bool
}

// ShopperRecord is a storefront customer. Registered is false for customers
// created implicitly (for example a guest checkout) that never set a password.
type ShopperRecord struct {
	Username     string
	PasswordHash string
	Authorities  []string
	Registered   bool
}

type StaffStore interface {
	FindStaffByUsername(ctx context.Context, username string) (StaffRecord, error)
}

type ShopperStore interface {
	FindShopperByUsername(ctx context.Context, username string) (ShopperRecord, error)
}

// SchemaRouter resolves the schema of the current request.
type SchemaRouter interface {
	RouteForCurrentRequest(ctx context.Context) (string, error)
}

// HashPassword hashes a clear-text password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash with a clear-text password.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
