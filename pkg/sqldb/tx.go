package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// txKey is scoped to one DB so a transaction opened on one database is
// never picked up by another one sharing the same ctx chain.
type txKey struct{ db *DB }

func (d *DB) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{d}).(*sqlx.Tx); ok {
		return tx
	}
	return d.db
}

// InTransaction reports whether ctx carries a transaction opened on d.
func (d *DB) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{d}).(*sqlx.Tx)
	return ok
}

// Transaction runs fn inside a transaction. Every Exec and Query issued on
// d with the ctx passed to fn joins that transaction. Returning an error
// or panicking rolls back; returning nil commits. Nested calls reuse the
// outer transaction.
func (d *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions is Transaction with an explicit isolation level
// or read-only flag.
func (d *DB) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if d.InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{d}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	return tx.Commit()
}
