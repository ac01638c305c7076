package sqldb

import (
	"io/fs"
	"time"
)

type Config struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"sqlite3"`                     // Driver is the database/sql driver name: "sqlite3" or "pgx" ("postgres" is an alias).
	DSN             string        `env:"DB_DSN"`                                             // DSN is the data source name passed to the driver.
	Schema          string        `env:"DB_SCHEMA"`                                          // Schema is the postgres schema used as search_path. Ignored by sqlite.
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`                  // MaxOpenConns is the maximum number of open connections to the database.
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`                   // MaxIdleConns is the maximum number of idle connections kept in the pool.
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"10m"`             // ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`              // ConnMaxLifetime is the maximum amount of time a connection may be reused.
	RetryAttempts   int           `env:"DB_RETRY_ATTEMPTS" envDefault:"3"`                   // RetryAttempts is the number of attempts to open the database.
	RetryInterval   time.Duration `env:"DB_RETRY_INTERVAL" envDefault:"1s"`                  // RetryInterval is the base interval between attempts, multiplied by the attempt number.
	Synchronize     bool          `env:"DB_SYNCHRONIZE" envDefault:"false"`                  // Synchronize creates missing entity tables on Initialize.
	MigrationsPath  string        `env:"DB_MIGRATIONS_PATH"`                                 // MigrationsPath is a directory with goose migrations applied on Initialize.
	MigrationsTable string        `env:"DB_MIGRATIONS_TABLE" envDefault:"schema_migrations"` // MigrationsTable is the goose version table.

	// Entities lists the structs mapped to tables, e.g. []any{User{}, Company{}}.
	Entities []any
	// Migrations overrides MigrationsPath with an in-memory or embedded filesystem.
	Migrations fs.FS
}

// defaults fills values that have no meaning at zero, so that configs built
// in code (not via env) behave the same as parsed ones.
func (c *Config) defaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Driver == "postgres" {
		c.Driver = DriverPostgres
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 1
	}
	if c.MigrationsTable == "" {
		c.MigrationsTable = "schema_migrations"
	}
}

func (c Config) hasMigrations() bool {
	return c.Migrations != nil || c.MigrationsPath != ""
}
