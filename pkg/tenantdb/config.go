package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

// ConfigFunc derives the connection config of a tenant from the base
// config. Entities and migrations must stay as they are so that every
// tenant shares one schema.
type ConfigFunc func(tenantID string, base sqldb.Config) (sqldb.Config, error)

// TenantIDFunc reads the active tenant id from ctx.
type TenantIDFunc func(ctx context.Context) (string, bool)

// SchemaFunc builds the shared entity metadata without opening a database.
type SchemaFunc func(base sqldb.Config) (*sqldb.Schema, error)

// SameConfig hands the base config to every tenant unchanged.
func SameConfig(_ string, base sqldb.Config) (sqldb.Config, error) {
	return base, nil
}

// SQLiteFilePerTenant stores each tenant in its own SQLite file named
// <dir>/<tenant>.db. The directory is created when missing. Ids with
// upper case letters are rejected: on case-insensitive filesystems "Acme"
// and "acme" would open the same file.
func SQLiteFilePerTenant(dir string) ConfigFunc {
	return func(tenantID string, base sqldb.Config) (sqldb.Config, error) {
		if !tenant.ValidIdentifier(tenantID) {
			return base, errors.Join(ErrInvalidTenantID, fmt.Errorf("%q cannot be used as a file name", tenantID))
		}
		if strings.ToLower(tenantID) != tenantID {
			return base, errors.Join(ErrInvalidTenantID, fmt.Errorf("%q must be lower case to be used as a file name", tenantID))
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return base, err
		}

		cfg := base
		cfg.Driver = sqldb.DriverSQLite
		cfg.DSN = "file:" + filepath.Join(dir, tenantID+".db") + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
		return cfg, nil
	}
}

// PostgresSchemaPerTenant keeps every tenant in the base postgres database
// under the schema <prefix><tenant>. The schema name is quoted wherever it
// is used, so ids differing only in case get distinct schemas.
func PostgresSchemaPerTenant(prefix string) ConfigFunc {
	return func(tenantID string, base sqldb.Config) (sqldb.Config, error) {
		if !tenant.ValidIdentifier(tenantID) {
			return base, errors.Join(ErrInvalidTenantID, fmt.Errorf("%q cannot be used as a schema name", tenantID))
		}

		cfg := base
		cfg.Driver = sqldb.DriverPostgres
		cfg.Schema = prefix + tenantID
		return cfg, nil
	}
}
