package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

// TxFunc is the body of a transaction. Returning an error rolls it back.
type TxFunc func(ctx context.Context, tx bun.Tx) error

func runTx(ctx context.Context, handle *bun.DB, opts *sql.TxOptions, kind string, fn TxFunc) error {
	if handle == nil {
		return fmt.Errorf("%s tx: %w", kind, ErrNotInitialized)
	}
	return handle.RunInTx(ctx, opts, fn)
}

// WithWriteTx runs fn on the single writer connection.
func (db *DB) WithWriteTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	if db == nil {
		return ErrNotInitialized
	}
	return runTx(ctx, db.W, &sql.TxOptions{}, "write", fn)
}

// WithReadTx runs fn in a read-only transaction on the reader pool.
func (db *DB) WithReadTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	if db == nil {
		return ErrNotInitialized
	}
	return runTx(ctx, db.R, &sql.TxOptions{ReadOnly: true}, "read", fn)
}
