package tenantdb

import (
	"context"
	"database/sql"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
)

// Conn is the connection the router keeps per tenant. *sqldb.DB
// implements it; tests and alternative engines may supply their own
// through WithOpenFunc.
type Conn interface {
	sqldb.Executor

	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error
	IsInitialized() bool
	Ping(ctx context.Context) error
	DriverName() string

	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error
	CreateQueryBuilder() *sqldb.SelectBuilder

	Synchronize(ctx context.Context, drop bool) error
	DropDatabase(ctx context.Context) error
	RunMigrations(ctx context.Context) ([]sqldb.Migration, error)
	UndoLastMigration(ctx context.Context) error
	ShowMigrations(ctx context.Context) (bool, error)

	Metadata() *sqldb.Schema
}

var _ Conn = (*sqldb.DB)(nil)

// OpenFunc opens and initializes the connection of one tenant.
type OpenFunc func(ctx context.Context, cfg sqldb.Config) (Conn, error)

// DefaultOpen opens cfg with sqldb and initializes it. A connection that
// fails to initialize is closed before the error is returned.
func DefaultOpen(opts ...sqldb.Option) OpenFunc {
	return func(ctx context.Context, cfg sqldb.Config) (Conn, error) {
		db, err := sqldb.Open(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		if err := db.Initialize(ctx); err != nil {
			_ = db.Destroy(ctx)
			return nil, err
		}
		return db, nil
	}
}
