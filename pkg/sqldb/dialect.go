package sqldb

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Driver names registered by the blank-imported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Dialect captures the SQL differences between the supported engines.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

func dialectFor(driver string) (Dialect, bool) {
	switch driver {
	case DriverSQLite:
		return DialectSQLite, true
	case DriverPostgres, "postgres":
		return DialectPostgres, true
	}
	return "", false
}

// Quote quotes an identifier. Both engines accept ANSI double quotes.
func (d Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Rebind rewrites "?" placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(string(d)), query)
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// columnType maps a Go field type to a column type for CREATE TABLE.
func (d Dialect) columnType(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case timeType:
		if d == DialectPostgres {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	case uuidType:
		if d == DialectPostgres {
			return "UUID"
		}
		return "TEXT"
	}

	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if d == DialectPostgres {
			return "BIGINT"
		}
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		if d == DialectPostgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if d == DialectPostgres {
				return "BYTEA"
			}
			return "BLOB"
		}
	}
	return "TEXT"
}

func (d Dialect) autoIncrementPrimaryKey() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}
