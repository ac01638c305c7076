package tenantdb

import (
	"context"
	"database/sql"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
)

// Unavailable stands in for a tenant connection when none could be
// resolved. Every operation on it fails with a ConnectionNotFoundError
// that names no tenant.
var Unavailable Conn = unavailable{}

type unavailable struct{}

func errUnavailable() error { return &ConnectionNotFoundError{} }

func (unavailable) Initialize(context.Context) error { return errUnavailable() }
func (unavailable) Destroy(context.Context) error    { return errUnavailable() }
func (unavailable) IsInitialized() bool              { return false }
func (unavailable) Ping(context.Context) error       { return errUnavailable() }
func (unavailable) DriverName() string               { return "" }
func (unavailable) Dialect() sqldb.Dialect           { return "" }
func (unavailable) Metadata() *sqldb.Schema          { return nil }

func (unavailable) Exec(context.Context, string, ...any) (sql.Result, error) {
	return nil, errUnavailable()
}

func (unavailable) Query(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errUnavailable()
}

func (unavailable) QueryRow(context.Context, string, ...any) *sqldb.Row {
	return sqldb.ErrRow(errUnavailable())
}

func (unavailable) Transaction(context.Context, func(context.Context) error) error {
	return errUnavailable()
}

func (unavailable) TransactionWithOptions(context.Context, *sql.TxOptions, func(context.Context) error) error {
	return errUnavailable()
}

// CreateQueryBuilder returns a builder whose execution fails.
func (u unavailable) CreateQueryBuilder() *sqldb.SelectBuilder {
	return sqldb.NewSelectBuilder(u)
}

func (unavailable) Synchronize(context.Context, bool) error { return errUnavailable() }
func (unavailable) DropDatabase(context.Context) error      { return errUnavailable() }

func (unavailable) RunMigrations(context.Context) ([]sqldb.Migration, error) {
	return nil, errUnavailable()
}

func (unavailable) UndoLastMigration(context.Context) error { return errUnavailable() }

func (unavailable) ShowMigrations(context.Context) (bool, error) {
	return false, errUnavailable()
}
