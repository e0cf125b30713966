package store

import (
	"context"
	"database/sql"
)

// DBTX is the query surface PostgresCardStore and PostgresDeckStore run on.
// *sql.DB and *sql.Tx both satisfy it, so a store built inside
// RunInTransaction joins the caller's transaction instead of opening its own.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
