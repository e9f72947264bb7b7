package db

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaDDL string

// EnsureSchema applies the idempotent DDL at startup. The event runs on a
// single database, so migrations beyond CREATE IF NOT EXISTS are not needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaDDL)
	return err
}
