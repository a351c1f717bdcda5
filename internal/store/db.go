package store

import (
	"context"
	"database/sql"
)

// DBTX is the database handle the store implementations run their queries
// against. Both *sql.DB and *sql.Tx satisfy it, which is what lets WithTx
// swap a live transaction in under an unchanged store without the store
// knowing which one it holds.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
