package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Option configures a DB.
type Option func(*DB)

// WithLogger routes migration and schema logs through l.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		if l != nil {
			d.log = l
		}
	}
}

// Open connects to the database described by cfg, retrying with a linear
// back-off so that a database still starting up does not fail the caller.
// The returned DB is connected but not initialized; call Initialize to
// create schemas and apply migrations.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	cfg.defaults()

	dialect, ok := dialectFor(cfg.Driver)
	if !ok {
		return nil, errors.Join(ErrUnsupportedDriver, fmt.Errorf("driver %q", cfg.Driver))
	}
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}

	schema, err := BuildSchema(cfg)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i := range cfg.RetryAttempts {
		sqlDB, err := openSQL(cfg, dialect)
		if err == nil {
			if err = sqlDB.PingContext(ctx); err == nil {
				x := sqlx.NewDb(sqlDB, cfg.Driver)
				x.Mapper = entityMapper
				d := &DB{
					db:      x,
					cfg:     cfg,
					dialect: dialect,
					schema:  schema,
					log:     slog.New(slog.DiscardHandler),
				}
				for _, opt := range opts {
					opt(d)
				}
				return d, nil
			}
			_ = sqlDB.Close()
		}
		lastErr = err

		if i == cfg.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToOpenDBConnection, lastErr)
}

func openSQL(cfg Config, dialect Dialect) (*sql.DB, error) {
	var db *sql.DB

	switch dialect {
	case DialectPostgres:
		connCfg, err := postgresConnConfig(cfg)
		if err != nil {
			return nil, err
		}
		db = stdlib.OpenDB(*connCfg)
	default:
		var err error
		db, err = sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, err
		}
	}

	if dialect == DialectSQLite && isMemoryDSN(cfg.DSN) {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return db, nil
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// postgresConnConfig parses the DSN and pins search_path to cfg.Schema.
// The schema is quoted the same way Initialize creates it, so mixed-case
// names are not folded to lower case by the server.
func postgresConnConfig(cfg Config) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Schema != "" {
		connCfg.RuntimeParams["search_path"] = pgx.Identifier{cfg.Schema}.Sanitize()
	}
	return connCfg, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
