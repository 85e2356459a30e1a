package credentials

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"shopgate/pkg/db"
)

// PostgresStore reads staff_users and customers from the tenant's schema.
// Schema DDL belongs to the provisioning workflow.
type PostgresStore struct {
	pool   db.Beginner
	router SchemaRouter
}

func NewPostgresStore(pool db.Beginner, router SchemaRouter) *PostgresStore {
	return &PostgresStore{pool: pool, router: router}
}

func (p *PostgresStore) FindStaffByUsername(ctx context.Context, username string) (StaffRecord, error) {
	var rec StaffRecord
	err := p.inTenantSchema(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT username, password_hash, COALESCE(authorities, '{}'), active
			FROM staff_users WHERE username = $1`, username).
			Scan(&rec.Username, &rec.PasswordHash, &rec.Authorities, &rec.Active)
	})
	return rec, err
}

func (p *PostgresStore) FindShopperByUsername(ctx context.Context, username string) (ShopperRecord, error) {
	var rec ShopperRecord
	err := p.inTenantSchema(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT username, COALESCE(password_hash, ''), COALESCE(authorities, '{}'), registered
			FROM customers WHERE username = $1`, username).
			Scan(&rec.Username, &rec.PasswordHash, &rec.Authorities, &rec.Registered)
	})
	return rec, err
}

func (p *PostgresStore) inTenantSchema(ctx context.Context, fn func(pgx.Tx) error) error {
	schema, err := p.router.RouteForCurrentRequest(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxInSchema(ctx, p.pool, schema)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
