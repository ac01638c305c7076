// Package sqldb is a small single-database engine built on database/sql.
// It is the connection type the tenant router drives, one instance per
// tenant, so everything it exposes works on exactly one database.
//
// Two drivers are supported: SQLite through github.com/mattn/go-sqlite3
// (driver "sqlite3") and PostgreSQL through the pgx/v5 stdlib adapter
// (driver "pgx"). A postgres Config.Schema becomes the connection
// search_path, which is how schema-per-tenant layouts are expressed.
//
// # Entities
//
// Entities are plain structs. Columns are mapped with a `db` tag:
//
//	type Widget struct {
//	    ID        uuid.UUID `db:"id,pk"`
//	    Name      string    `db:"name,unique"`
//	    Note      *string   `db:"note"`
//	    CreatedAt time.Time `db:"created_at"`
//	}
//
// The table name is the snake_case type name unless the type implements
// Tabler. An integer primary key is auto-incremented; a zero uuid.UUID
// primary key is generated on insert. Pointer fields are nullable.
//
// # Usage
//
//	db, err := sqldb.Open(ctx, sqldb.Config{
//	    DSN:         "file:app.db?_busy_timeout=5000",
//	    Entities:    []any{Widget{}},
//	    Synchronize: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Destroy(ctx)
//
//	if err := db.Initialize(ctx); err != nil {
//	    return err
//	}
//
//	widgets, err := sqldb.RepositoryFor[Widget](db)
//	if err != nil {
//	    return err
//	}
//	err = db.Transaction(ctx, func(ctx context.Context) error {
//	    return widgets.Insert(ctx, &Widget{Name: "gear"})
//	})
//
// Transactions travel in the context: every call made on the same DB with
// the ctx handed to the callback joins the transaction, and nested
// Transaction calls reuse it.
//
// # Migrations
//
// Migrations are goose SQL files read from Config.Migrations (any fs.FS)
// or Config.MigrationsPath. They run per DB through a goose Provider, so
// several databases can migrate concurrently without shared global state.
package sqldb
