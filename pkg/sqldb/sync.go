package sqldb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/multitenant/pkg/logger"
)

// Synchronize creates the table of every registered entity that does not
// exist yet. With drop set, DropDatabase runs first.
func (d *DB) Synchronize(ctx context.Context, drop bool) error {
	if drop {
		if err := d.DropDatabase(ctx); err != nil {
			return err
		}
	}

	for _, meta := range d.schema.Entities() {
		if _, err := d.Exec(ctx, createTableSQL(d.dialect, meta)); err != nil {
			return errors.Join(ErrSynchronizeFailed, fmt.Errorf("table %s: %w", meta.Table, err))
		}
		d.log.DebugContext(ctx, "entity table synchronized", logger.Table(meta.Table))
	}
	return nil
}

// DropDatabase drops every entity table and the migrations table.
func (d *DB) DropDatabase(ctx context.Context) error {
	entities := d.schema.Entities()
	slices.Reverse(entities)

	tables := make([]string, 0, len(entities)+1)
	for _, meta := range entities {
		tables = append(tables, meta.Table)
	}
	tables = append(tables, d.cfg.MigrationsTable)

	for _, table := range tables {
		if _, err := d.Exec(ctx, "DROP TABLE IF EXISTS "+d.dialect.Quote(table)); err != nil {
			return errors.Join(ErrSynchronizeFailed, fmt.Errorf("drop %s: %w", table, err))
		}
	}
	return nil
}

func createTableSQL(dialect Dialect, meta *EntityMetadata) string {
	defs := make([]string, len(meta.Columns))
	for i, c := range meta.Columns {
		defs[i] = columnDefinition(dialect, c)
	}
	return "CREATE TABLE IF NOT EXISTS " + dialect.Quote(meta.Table) + " (" + strings.Join(defs, ", ") + ")"
}

func columnDefinition(dialect Dialect, c *ColumnMetadata) string {
	def := dialect.Quote(c.Name) + " "
	if c.AutoIncrement {
		return def + dialect.autoIncrementPrimaryKey()
	}

	if c.SQLType != "" {
		def += c.SQLType
	} else {
		def += dialect.columnType(c.Type)
	}
	switch {
	case c.PrimaryKey:
		def += " PRIMARY KEY"
	case !c.Nullable:
		def += " NOT NULL"
	}
	if c.Unique && !c.PrimaryKey {
		def += " UNIQUE"
	}
	return def
}
