package store

import (
	"context"
	"database/sql"
)

// Transactor runs a function inside a single transactional boundary.
// The service layer depends on this rather than on *sql.DB directly, so the
// optimistic-concurrency contract can be exercised against the in-memory
// stores without a database.
type Transactor interface {
	// InTransaction executes fn atomically: all store operations performed
	// through WithTx(tx) either commit together or roll back together.
	InTransaction(ctx context.Context, fn TxFn) error
}

// sqlTransactor implements Transactor over a live database connection.
type sqlTransactor struct {
	db *sql.DB
}

// NewSQLTransactor creates a Transactor backed by database transactions.
func NewSQLTransactor(db *sql.DB) Transactor {
	return &sqlTransactor{db: db}
}

// InTransaction implements Transactor using RunInTransaction.
func (t *sqlTransactor) InTransaction(ctx context.Context, fn TxFn) error {
	return RunInTransaction(ctx, t.db, fn)
}
