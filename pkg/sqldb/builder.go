package sqldb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// SelectBuilder assembles a SELECT statement with "?" placeholders and
// runs it on the executor it was created for. Placeholders are rebound to
// the executor's dialect when the statement is rendered.
type SelectBuilder struct {
	ex      Executor
	columns []string
	from    string
	where   []string
	args    []any
	groupBy []string
	orderBy []string
	limit   int
	offset  int
}

// NewSelectBuilder starts an empty builder bound to ex.
func NewSelectBuilder(ex Executor) *SelectBuilder {
	return &SelectBuilder{ex: ex}
}

// Select sets the selected expressions. Defaults to "*".
func (b *SelectBuilder) Select(columns ...string) *SelectBuilder {
	b.columns = append(b.columns[:0], columns...)
	return b
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.from = table
	return b
}

// Where adds a condition joined with AND to the previous ones.
func (b *SelectBuilder) Where(expr string, args ...any) *SelectBuilder {
	b.where = append(b.where, expr)
	b.args = append(b.args, args...)
	return b
}

func (b *SelectBuilder) GroupBy(exprs ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, exprs...)
	return b
}

func (b *SelectBuilder) OrderBy(exprs ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, exprs...)
	return b
}

func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = n
	return b
}

func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = n
	return b
}

// ToSQL renders the statement for the executor's dialect.
func (b *SelectBuilder) ToSQL() (string, []any) {
	return b.render(b.columns, true)
}

func (b *SelectBuilder) render(columns []string, paging bool) (string, []any) {
	var q strings.Builder
	q.WriteString("SELECT ")
	if len(columns) == 0 {
		q.WriteString("*")
	} else {
		q.WriteString(strings.Join(columns, ", "))
	}
	if b.from != "" {
		q.WriteString(" FROM ")
		q.WriteString(b.dialect().Quote(b.from))
	}
	if len(b.where) > 0 {
		q.WriteString(" WHERE ")
		for i, w := range b.where {
			if i > 0 {
				q.WriteString(" AND ")
			}
			q.WriteString("(" + w + ")")
		}
	}
	if len(b.groupBy) > 0 {
		q.WriteString(" GROUP BY ")
		q.WriteString(strings.Join(b.groupBy, ", "))
	}
	if paging {
		if len(b.orderBy) > 0 {
			q.WriteString(" ORDER BY ")
			q.WriteString(strings.Join(b.orderBy, ", "))
		}
		if b.limit > 0 {
			q.WriteString(" LIMIT " + strconv.Itoa(b.limit))
		}
		if b.offset > 0 {
			if b.limit <= 0 && b.dialect() == DialectSQLite {
				q.WriteString(" LIMIT -1")
			}
			q.WriteString(" OFFSET " + strconv.Itoa(b.offset))
		}
	}

	args := make([]any, len(b.args))
	copy(args, b.args)
	return b.dialect().Rebind(q.String()), args
}

func (b *SelectBuilder) dialect() Dialect {
	if b.ex == nil {
		return DialectSQLite
	}
	return b.ex.Dialect()
}

// Rows runs the statement. The caller closes the returned rows.
func (b *SelectBuilder) Rows(ctx context.Context) (*sql.Rows, error) {
	query, args := b.ToSQL()
	return b.ex.Query(ctx, query, args...)
}

// Row scans the first result row into dest. It returns ErrNotFound when
// the statement matches nothing.
func (b *SelectBuilder) Row(ctx context.Context, dest ...any) error {
	rows, err := b.Rows(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNotFound
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Err()
}

// Count returns the number of rows the statement matches, ignoring
// ordering and paging.
func (b *SelectBuilder) Count(ctx context.Context) (int64, error) {
	var (
		query string
		args  []any
	)
	if len(b.groupBy) > 0 {
		inner, innerArgs := b.render(b.columns, false)
		query, args = "SELECT COUNT(*) FROM ("+inner+") AS grouped", innerArgs
	} else {
		query, args = b.render([]string{"COUNT(*)"}, false)
	}

	var n int64
	if err := b.ex.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
