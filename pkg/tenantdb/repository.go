package tenantdb

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
)

// Repository is the tenant-aware counterpart of sqldb.Repository. It holds
// no connection: every call resolves the tenant active in its ctx and
// runs on that tenant's connection, so one value serves all tenants.
type Repository[T any] struct {
	router *Router
}

// GetRepository returns the repository of entity type T (a struct type,
// not a pointer). Repeated calls for the same T return the same value.
func GetRepository[T any](r *Router) *Repository[T] {
	key := reflect.TypeFor[T]()
	if v, ok := r.repos.Load(key); ok {
		return v.(*Repository[T])
	}
	v, _ := r.repos.LoadOrStore(key, &Repository[T]{router: r})
	return v.(*Repository[T])
}

// Metadata returns the shared metadata of T without resolving a tenant.
func (p *Repository[T]) Metadata() (*sqldb.EntityMetadata, error) {
	return sqldb.MetadataOf[T](p.router.Metadata())
}

// Manager returns the active tenant's connection or Unavailable.
func (p *Repository[T]) Manager(ctx context.Context) Conn {
	return p.router.Manager(ctx)
}

// Extend is not supported: custom methods bound to one connection cannot
// follow the tenant of each call. Wrap the Repository in your own type instead.
func (p *Repository[T]) Extend(any) error {
	return ErrExtendNotSupported
}

// forward resolves the tenant of ctx, binds a sqldb.Repository to its
// connection and runs op on it. Resolution errors are returned unchanged.
func forward[T, R any](ctx context.Context, p *Repository[T], op func(repo *sqldb.Repository[T]) (R, error)) (R, error) {
	var zero R
	conn, err := p.router.Resolve(ctx)
	if err != nil {
		return zero, err
	}
	meta, err := p.Metadata()
	if err != nil {
		return zero, err
	}
	return op(sqldb.NewRepository[T](conn, meta))
}

func forwardErr[T any](ctx context.Context, p *Repository[T], op func(repo *sqldb.Repository[T]) error) error {
	_, err := forward(ctx, p, func(repo *sqldb.Repository[T]) (struct{}, error) {
		return struct{}{}, op(repo)
	})
	return err
}

func (p *Repository[T]) Insert(ctx context.Context, entity *T) error {
	return forwardErr(ctx, p, func(repo *sqldb.Repository[T]) error { return repo.Insert(ctx, entity) })
}

func (p *Repository[T]) Save(ctx context.Context, entity *T) error {
	return forwardErr(ctx, p, func(repo *sqldb.Repository[T]) error { return repo.Save(ctx, entity) })
}

func (p *Repository[T]) Find(ctx context.Context, opts sqldb.FindOptions) ([]T, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) ([]T, error) { return repo.Find(ctx, opts) })
}

func (p *Repository[T]) FindBy(ctx context.Context, where sqldb.Criteria) ([]T, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) ([]T, error) { return repo.FindBy(ctx, where) })
}

func (p *Repository[T]) FindOne(ctx context.Context, opts sqldb.FindOptions) (*T, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (*T, error) { return repo.FindOne(ctx, opts) })
}

func (p *Repository[T]) FindOneBy(ctx context.Context, where sqldb.Criteria) (*T, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (*T, error) { return repo.FindOneBy(ctx, where) })
}

func (p *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (*T, error) { return repo.FindByID(ctx, id) })
}

func (p *Repository[T]) Exists(ctx context.Context, opts sqldb.FindOptions) (bool, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (bool, error) { return repo.Exists(ctx, opts) })
}

func (p *Repository[T]) ExistsBy(ctx context.Context, where sqldb.Criteria) (bool, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (bool, error) { return repo.ExistsBy(ctx, where) })
}

func (p *Repository[T]) Count(ctx context.Context, opts sqldb.FindOptions) (int64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (int64, error) { return repo.Count(ctx, opts) })
}

func (p *Repository[T]) CountBy(ctx context.Context, where sqldb.Criteria) (int64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (int64, error) { return repo.CountBy(ctx, where) })
}

func (p *Repository[T]) Sum(ctx context.Context, column string, where sqldb.Criteria) (sql.NullFloat64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (sql.NullFloat64, error) { return repo.Sum(ctx, column, where) })
}

func (p *Repository[T]) Average(ctx context.Context, column string, where sqldb.Criteria) (sql.NullFloat64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (sql.NullFloat64, error) { return repo.Average(ctx, column, where) })
}

func (p *Repository[T]) Minimum(ctx context.Context, column string, where sqldb.Criteria) (sql.NullFloat64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (sql.NullFloat64, error) { return repo.Minimum(ctx, column, where) })
}

func (p *Repository[T]) Maximum(ctx context.Context, column string, where sqldb.Criteria) (sql.NullFloat64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (sql.NullFloat64, error) { return repo.Maximum(ctx, column, where) })
}

func (p *Repository[T]) Update(ctx context.Context, where, values sqldb.Criteria) (int64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (int64, error) { return repo.Update(ctx, where, values) })
}

func (p *Repository[T]) UpdateByID(ctx context.Context, id any, values sqldb.Criteria) (int64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (int64, error) { return repo.UpdateByID(ctx, id, values) })
}

func (p *Repository[T]) Delete(ctx context.Context, where sqldb.Criteria) (int64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (int64, error) { return repo.Delete(ctx, where) })
}

func (p *Repository[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (int64, error) { return repo.DeleteByID(ctx, id) })
}

func (p *Repository[T]) Clear(ctx context.Context) error {
	return forwardErr(ctx, p, func(repo *sqldb.Repository[T]) error { return repo.Clear(ctx) })
}

func (p *Repository[T]) Query(ctx context.Context, query string, args ...any) ([]T, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) ([]T, error) { return repo.Query(ctx, query, args...) })
}

// CreateQueryBuilder returns a builder over T's table on the active tenant's connection.
func (p *Repository[T]) CreateQueryBuilder(ctx context.Context) (*sqldb.SelectBuilder, error) {
	return forward(ctx, p, func(repo *sqldb.Repository[T]) (*sqldb.SelectBuilder, error) {
		return repo.CreateQueryBuilder(), nil
	})
}
