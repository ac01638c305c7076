package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
)

// Executor runs SQL against exactly one database.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Dialect() Dialect
}

// querier is implemented by *sqlx.DB and *sqlx.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a single database connection pool with entity metadata attached.
type DB struct {
	db      *sqlx.DB
	cfg     Config
	dialect Dialect
	schema  *Schema
	log     *slog.Logger

	initialized atomic.Bool
	closed      atomic.Bool
}

var _ Executor = (*DB)(nil)

// Initialize prepares the database for use: it creates the postgres schema
// when one is configured, synchronizes entity tables when enabled and
// applies pending migrations.
func (d *DB) Initialize(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return err
	}

	if d.dialect == DialectPostgres && d.cfg.Schema != "" {
		if _, err := d.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+d.dialect.Quote(d.cfg.Schema)); err != nil {
			return errors.Join(ErrSynchronizeFailed, err)
		}
	}

	if d.cfg.Synchronize {
		if err := d.Synchronize(ctx, false); err != nil {
			return err
		}
	}

	if d.cfg.hasMigrations() {
		if _, err := d.RunMigrations(ctx); err != nil {
			return err
		}
	}

	d.initialized.Store(true)
	return nil
}

// Destroy closes the pool. Subsequent calls are no-ops.
func (d *DB) Destroy(ctx context.Context) error {
	if d.closed.Swap(true) {
		return nil
	}
	d.initialized.Store(false)
	return d.db.Close()
}

// IsInitialized reports whether Initialize succeeded and Destroy was not called.
func (d *DB) IsInitialized() bool {
	return d.initialized.Load()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) DriverName() string { return d.cfg.Driver }

func (d *DB) Dialect() Dialect { return d.dialect }

// Metadata returns the entity metadata built from the connection config.
func (d *DB) Metadata() *Schema { return d.schema }

// Config returns the configuration the DB was opened with.
func (d *DB) Config() Config { return d.cfg }

// SQL exposes the underlying pool for code that needs database/sql directly.
func (d *DB) SQL() *sql.DB { return d.db.DB }

// X exposes the pool as *sqlx.DB, mapping columns with the entity naming rules.
func (d *DB) X() *sqlx.DB { return d.db }

// Exec runs a statement on the transaction bound to ctx, or on the pool.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.querier(ctx).ExecContext(ctx, query, args...)
}

// Query runs a query on the transaction bound to ctx, or on the pool.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.querier(ctx).QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query on the transaction bound to ctx, or on the pool.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *Row {
	return &Row{row: d.querier(ctx).QueryRowContext(ctx, query, args...)}
}

// CreateQueryBuilder starts a SELECT builder executing against d.
func (d *DB) CreateQueryBuilder() *SelectBuilder {
	return NewSelectBuilder(d)
}
