package tenantdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
)

var _ sqldb.Executor = (*Router)(nil)

// Resolve returns the connection of the tenant active in ctx.
func (r *Router) Resolve(ctx context.Context) (Conn, error) {
	id, ok := r.tenantID(ctx)
	if !ok || id == "" {
		r.metrics.resolveFailed(reasonNoTenant)
		return nil, ErrTenantIDNotProvided
	}

	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		r.metrics.resolveFailed(reasonNotFound)
		return nil, &ConnectionNotFoundError{TenantID: id}
	}
	return conn, nil
}

// Manager returns the connection of the active tenant, or Unavailable
// when there is none. It never fails; the returned Conn does.
func (r *Router) Manager(ctx context.Context) Conn {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return Unavailable
	}
	return conn
}

func (r *Router) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Exec(ctx, query, args...)
}

func (r *Router) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Query(ctx, query, args...)
}

// QueryRow resolves the tenant and runs query on it. A resolution error
// is reported by the returned row's Scan.
func (r *Router) QueryRow(ctx context.Context, query string, args ...any) *sqldb.Row {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return sqldb.ErrRow(err)
	}
	return conn.QueryRow(ctx, query, args...)
}

// Transaction runs fn in a transaction on the active tenant's connection.
func (r *Router) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return err
	}
	return conn.Transaction(ctx, fn)
}

func (r *Router) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return err
	}
	return conn.TransactionWithOptions(ctx, opts, fn)
}

// CreateQueryBuilder returns a builder bound to the active tenant's connection.
func (r *Router) CreateQueryBuilder(ctx context.Context) (*sqldb.SelectBuilder, error) {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return conn.CreateQueryBuilder(), nil
}

func (r *Router) Ping(ctx context.Context) error {
	conn, err := r.Resolve(ctx)
	if err != nil {
		return err
	}
	return conn.Ping(ctx)
}

// DriverName is the driver of the base config.
func (r *Router) DriverName() string {
	switch r.base.Driver {
	case "":
		return sqldb.DriverSQLite
	case "postgres":
		return sqldb.DriverPostgres
	}
	return r.base.Driver
}

// Dialect is the SQL dialect of the base config. Placeholders in raw
// queries handed to the router are written for it.
func (r *Router) Dialect() sqldb.Dialect {
	if r.DriverName() == sqldb.DriverPostgres {
		return sqldb.DialectPostgres
	}
	return sqldb.DialectSQLite
}

// Synchronize creates missing entity tables on every tenant.
func (r *Router) Synchronize(ctx context.Context, drop bool) error {
	return r.each(ctx, func(ctx context.Context, conn Conn) error {
		return conn.Synchronize(ctx, drop)
	})
}

// DropDatabase drops entity and migration tables on every tenant.
func (r *Router) DropDatabase(ctx context.Context) error {
	return r.each(ctx, func(ctx context.Context, conn Conn) error {
		return conn.DropDatabase(ctx)
	})
}

// RunMigrations applies pending migrations on every tenant and returns
// what was applied on the first tenant (in id order).
func (r *Router) RunMigrations(ctx context.Context) ([]sqldb.Migration, error) {
	ids, conns := r.snapshot()
	results := make([][]sqldb.Migration, len(conns))

	err := r.fanOut(ctx, ids, conns, func(ctx context.Context, i int, conn Conn) error {
		applied, err := conn.RunMigrations(ctx)
		results[i] = applied
		return err
	})
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// UndoLastMigration reverts the latest migration on every tenant.
func (r *Router) UndoLastMigration(ctx context.Context) error {
	return r.each(ctx, func(ctx context.Context, conn Conn) error {
		return conn.UndoLastMigration(ctx)
	})
}

// ShowMigrations reports true when every tenant has pending migrations.
// With no tenants there is nothing pending.
func (r *Router) ShowMigrations(ctx context.Context) (bool, error) {
	ids, conns := r.snapshot()
	if len(conns) == 0 {
		return false, nil
	}
	pending := make([]bool, len(conns))

	err := r.fanOut(ctx, ids, conns, func(ctx context.Context, i int, conn Conn) error {
		p, err := conn.ShowMigrations(ctx)
		pending[i] = p
		return err
	})
	if err != nil {
		return false, err
	}
	for _, p := range pending {
		if !p {
			return false, nil
		}
	}
	return true, nil
}

func (r *Router) each(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error {
	ids, conns := r.snapshot()
	return r.fanOut(ctx, ids, conns, func(ctx context.Context, _ int, conn Conn) error {
		return fn(ctx, conn)
	})
}

func (r *Router) fanOut(ctx context.Context, ids []string, conns []Conn, fn func(ctx context.Context, i int, conn Conn) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(conns))
	for i, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx, i, conn); err != nil {
				errs[i] = fmt.Errorf("tenant %s: %w", ids[i], err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// EntityMetadatas returns the shared entity metadata. It does not depend
// on the active tenant and is available with zero tenants.
func (r *Router) EntityMetadatas() []*sqldb.EntityMetadata {
	return r.Metadata().Entities()
}

// GetMetadata returns the metadata of entity (a value, pointer or reflect.Type).
func (r *Router) GetMetadata(entity any) (*sqldb.EntityMetadata, error) {
	return r.Metadata().Metadata(entity)
}

func (r *Router) HasMetadata(entity any) bool {
	return r.Metadata().Has(entity)
}

// Metadata returns the shared schema.
func (r *Router) Metadata() *sqldb.Schema {
	r.schemaMu.RLock()
	defer r.schemaMu.RUnlock()
	return r.schema
}
