package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var errEmptySchema = errors.New("db: empty schema")

// Beginner starts transactions; *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BeginTxInSchema starts a transaction whose search_path is the given schema.
// The setting is transaction-local so pooled connections never carry one
// tenant's schema into another request.
// Call tx.Rollback(ctx) on error paths; Commit on success.
func BeginTxInSchema(ctx context.Context, pool Beginner, schema string) (pgx.Tx, error) {
	path, err := SearchPath(schema)
	if err != nil {
		return nil, err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('search_path', $1, true)", path); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// SearchPath quotes schema for use as a search_path value.
func SearchPath(schema string) (string, error) {
	if schema == "" {
		return "", errEmptySchema
	}
	return pgx.Identifier{schema}.Sanitize(), nil
}
