package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Criteria maps column names to the values they must equal. A nil value
// matches NULL.
type Criteria map[string]any

// FindOptions narrows and orders a Find.
type FindOptions struct {
	Where   Criteria
	OrderBy []string // raw ORDER BY expressions, e.g. "name DESC"
	Limit   int
	Offset  int
}

// Repository is a typed gateway to the table of entity T on one executor.
type Repository[T any] struct {
	ex   Executor
	meta *EntityMetadata
}

// NewRepository builds a repository for T running on ex.
func NewRepository[T any](ex Executor, meta *EntityMetadata) *Repository[T] {
	return &Repository[T]{ex: ex, meta: meta}
}

// RepositoryFor looks up T in the schema of db and returns its repository.
func RepositoryFor[T any](db *DB) (*Repository[T], error) {
	meta, err := MetadataOf[T](db.Metadata())
	if err != nil {
		return nil, err
	}
	return NewRepository[T](db, meta), nil
}

// Metadata returns the entity metadata the repository maps through.
func (r *Repository[T]) Metadata() *EntityMetadata { return r.meta }

func (r *Repository[T]) quote(ident string) string { return r.ex.Dialect().Quote(ident) }

// Insert stores entity as a new row. A zero uuid primary key is generated
// and an auto-increment key is read back into entity.
func (r *Repository[T]) Insert(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	v := reflect.ValueOf(entity).Elem()
	pk := r.meta.PrimaryKey
	pkField := v.FieldByIndex(pk.index)
	fillUUID(pkField)

	skipPK := pk.AutoIncrement && pkField.IsZero()
	cols, args := r.values(v, skipPK)

	query := r.insertSQL(cols)
	if !skipPK {
		_, err := r.ex.Exec(ctx, r.ex.Dialect().Rebind(query), args...)
		return err
	}

	query += " RETURNING " + r.quote(pk.Name)
	return r.ex.QueryRow(ctx, r.ex.Dialect().Rebind(query), args...).Scan(pkField.Addr().Interface())
}

// Save inserts entity or, when a row with the same primary key exists,
// overwrites it.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	v := reflect.ValueOf(entity).Elem()
	pk := r.meta.PrimaryKey
	pkField := v.FieldByIndex(pk.index)
	if pk.AutoIncrement && pkField.IsZero() {
		return r.Insert(ctx, entity)
	}
	fillUUID(pkField)

	cols, args := r.values(v, false)
	var sets []string
	for _, c := range cols {
		if c == pk.Name {
			continue
		}
		sets = append(sets, r.quote(c)+" = excluded."+r.quote(c))
	}

	query := r.insertSQL(cols) + " ON CONFLICT (" + r.quote(pk.Name) + ")"
	if len(sets) == 0 {
		query += " DO NOTHING"
	} else {
		query += " DO UPDATE SET " + strings.Join(sets, ", ")
	}
	_, err := r.ex.Exec(ctx, r.ex.Dialect().Rebind(query), args...)
	return err
}

// Find returns every row matching opts.
func (r *Repository[T]) Find(ctx context.Context, opts FindOptions) ([]T, error) {
	b, err := r.selectFor(opts.Where)
	if err != nil {
		return nil, err
	}
	b.OrderBy(opts.OrderBy...).Limit(opts.Limit).Offset(opts.Offset)

	rows, err := b.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return scanAll[T](rows)
}

// FindBy returns every row matching where.
func (r *Repository[T]) FindBy(ctx context.Context, where Criteria) ([]T, error) {
	return r.Find(ctx, FindOptions{Where: where})
}

// FindOne returns the first row matching opts or ErrNotFound.
func (r *Repository[T]) FindOne(ctx context.Context, opts FindOptions) (*T, error) {
	opts.Limit = 1
	items, err := r.Find(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (r *Repository[T]) FindOneBy(ctx context.Context, where Criteria) (*T, error) {
	return r.FindOne(ctx, FindOptions{Where: where})
}

func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	return r.FindOneBy(ctx, Criteria{r.meta.PrimaryKey.Name: id})
}

// Exists reports whether any row matches opts.Where.
func (r *Repository[T]) Exists(ctx context.Context, opts FindOptions) (bool, error) {
	n, err := r.Count(ctx, opts)
	return n > 0, err
}

func (r *Repository[T]) ExistsBy(ctx context.Context, where Criteria) (bool, error) {
	return r.Exists(ctx, FindOptions{Where: where})
}

// Count returns the number of rows matching opts.Where.
func (r *Repository[T]) Count(ctx context.Context, opts FindOptions) (int64, error) {
	b, err := r.selectFor(opts.Where)
	if err != nil {
		return 0, err
	}
	return b.Count(ctx)
}

func (r *Repository[T]) CountBy(ctx context.Context, where Criteria) (int64, error) {
	return r.Count(ctx, FindOptions{Where: where})
}

// Sum totals column over the rows matching where. The result is invalid
// when no row matches.
func (r *Repository[T]) Sum(ctx context.Context, column string, where Criteria) (sql.NullFloat64, error) {
	return r.aggregate(ctx, "SUM", column, where)
}

func (r *Repository[T]) Average(ctx context.Context, column string, where Criteria) (sql.NullFloat64, error) {
	return r.aggregate(ctx, "AVG", column, where)
}

func (r *Repository[T]) Minimum(ctx context.Context, column string, where Criteria) (sql.NullFloat64, error) {
	return r.aggregate(ctx, "MIN", column, where)
}

func (r *Repository[T]) Maximum(ctx context.Context, column string, where Criteria) (sql.NullFloat64, error) {
	return r.aggregate(ctx, "MAX", column, where)
}

func (r *Repository[T]) aggregate(ctx context.Context, fn, column string, where Criteria) (sql.NullFloat64, error) {
	var out sql.NullFloat64
	if _, ok := r.meta.Column(column); !ok {
		return out, errors.Join(ErrUnknownColumn, fmt.Errorf("%s.%s", r.meta.Table, column))
	}
	b, err := r.selectFor(where)
	if err != nil {
		return out, err
	}
	b.Select(fn + "(" + r.quote(column) + ")")
	err = b.Row(ctx, &out)
	return out, err
}

// Update sets values on every row matching where and returns the number
// of affected rows. Empty criteria are rejected; use Clear to wipe a table.
func (r *Repository[T]) Update(ctx context.Context, where, values Criteria) (int64, error) {
	if len(where) == 0 {
		return 0, ErrEmptyCriteria
	}
	if len(values) == 0 {
		return 0, nil
	}

	setCols, err := r.sortedColumns(values)
	if err != nil {
		return 0, err
	}
	sets := make([]string, len(setCols))
	args := make([]any, 0, len(values)+len(where))
	for i, c := range setCols {
		sets[i] = r.quote(c) + " = ?"
		args = append(args, values[c])
	}

	cond, condArgs, err := r.conditions(where)
	if err != nil {
		return 0, err
	}
	args = append(args, condArgs...)

	query := "UPDATE " + r.quote(r.meta.Table) + " SET " + strings.Join(sets, ", ") + " WHERE " + cond
	return r.exec(ctx, query, args...)
}

func (r *Repository[T]) UpdateByID(ctx context.Context, id any, values Criteria) (int64, error) {
	return r.Update(ctx, Criteria{r.meta.PrimaryKey.Name: id}, values)
}

// Delete removes rows matching where. Empty criteria are rejected.
func (r *Repository[T]) Delete(ctx context.Context, where Criteria) (int64, error) {
	if len(where) == 0 {
		return 0, ErrEmptyCriteria
	}
	cond, args, err := r.conditions(where)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, "DELETE FROM "+r.quote(r.meta.Table)+" WHERE "+cond, args...)
}

func (r *Repository[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	return r.Delete(ctx, Criteria{r.meta.PrimaryKey.Name: id})
}

// Clear removes every row of the table.
func (r *Repository[T]) Clear(ctx context.Context) error {
	_, err := r.ex.Exec(ctx, "DELETE FROM "+r.quote(r.meta.Table))
	return err
}

// Query runs raw SQL ("?" placeholders) and maps the result columns onto T.
// Every selected column must map to a field of T.
func (r *Repository[T]) Query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := r.ex.Query(ctx, r.ex.Dialect().Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return scanAll[T](rows)
}

// CreateQueryBuilder starts a builder selecting T's columns from its table.
func (r *Repository[T]) CreateQueryBuilder() *SelectBuilder {
	cols := make([]string, len(r.meta.Columns))
	for i, c := range r.meta.Columns {
		cols[i] = r.quote(c.Name)
	}
	return NewSelectBuilder(r.ex).Select(cols...).From(r.meta.Table)
}

func (r *Repository[T]) selectFor(where Criteria) (*SelectBuilder, error) {
	b := r.CreateQueryBuilder()
	if len(where) == 0 {
		return b, nil
	}
	cond, args, err := r.conditions(where)
	if err != nil {
		return nil, err
	}
	return b.Where(cond, args...), nil
}

func (r *Repository[T]) conditions(where Criteria) (string, []any, error) {
	cols, err := r.sortedColumns(where)
	if err != nil {
		return "", nil, err
	}
	parts := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		if where[c] == nil {
			parts[i] = r.quote(c) + " IS NULL"
			continue
		}
		parts[i] = r.quote(c) + " = ?"
		args = append(args, where[c])
	}
	return strings.Join(parts, " AND "), args, nil
}

// sortedColumns validates the keys of c and returns them in a stable order.
func (r *Repository[T]) sortedColumns(c Criteria) ([]string, error) {
	cols := make([]string, 0, len(c))
	for name := range c {
		if _, ok := r.meta.Column(name); !ok {
			return nil, errors.Join(ErrUnknownColumn, fmt.Errorf("%s.%s", r.meta.Table, name))
		}
		cols = append(cols, name)
	}
	slices.Sort(cols)
	return cols, nil
}

func (r *Repository[T]) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.ex.Exec(ctx, r.ex.Dialect().Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository[T]) values(v reflect.Value, skipPK bool) ([]string, []any) {
	cols := make([]string, 0, len(r.meta.Columns))
	args := make([]any, 0, len(r.meta.Columns))
	for _, c := range r.meta.Columns {
		if skipPK && c.PrimaryKey {
			continue
		}
		cols = append(cols, c.Name)
		args = append(args, v.FieldByIndex(c.index).Interface())
	}
	return cols, args
}

func (r *Repository[T]) insertSQL(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = r.quote(c)
	}
	return "INSERT INTO " + r.quote(r.meta.Table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
}

func fillUUID(field reflect.Value) {
	if field.Type() == uuidType && field.IsZero() {
		field.Set(reflect.ValueOf(uuid.New()))
	}
}

// scanAll maps every row onto T through sqlx and closes rows. Result
// columns that match no field of T are an error.
func scanAll[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()

	var out []T
	if err := sqlx.StructScan(&sqlx.Rows{Rows: rows, Mapper: entityMapper}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
