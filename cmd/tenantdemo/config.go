package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/multitenant/pkg/httpserver"
	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/redis"
	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
	"github.com/dmitrymomot/multitenant/pkg/tenantsync"
)

// Tenant database layouts.
const (
	LayoutSQLiteFile     = "sqlite-file"
	LayoutPostgresSchema = "postgres-schema"
)

// Tenant resolvers.
const (
	ResolverHeader    = "header"
	ResolverSubdomain = "subdomain"
	ResolverPath      = "path"
)

type AppConfig struct {
	Log     logger.Config
	DB      sqldb.Config
	HTTP    httpserver.Config
	Redis   redis.Config
	Tenants tenantsync.Config

	Layout       string `env:"TENANT_LAYOUT" envDefault:"sqlite-file"`      // sqlite-file or postgres-schema
	DataDir      string `env:"TENANT_DATA_DIR" envDefault:"./data"`         // directory of per-tenant sqlite files
	SchemaPrefix string `env:"TENANT_SCHEMA_PREFIX" envDefault:"tenant_"`   // postgres schema name prefix
	Resolver     string `env:"TENANT_RESOLVER" envDefault:"header"`         // header, subdomain or path
	Header       string `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`      // header read by the header resolver
	BaseDomain   string `env:"TENANT_BASE_DOMAIN" envDefault:"example.com"` // suffix stripped by the subdomain resolver
	AdminToken   string `env:"ADMIN_TOKEN"`                                 // bearer token for /admin; admin routes are disabled when empty
}

var errInvalidAppConfig = errors.New("invalid app config")

// Validate is called by config.Load.
func (c AppConfig) Validate() error {
	switch c.Layout {
	case LayoutSQLiteFile, LayoutPostgresSchema:
	default:
		return fmt.Errorf("%w: unknown TENANT_LAYOUT %q", errInvalidAppConfig, c.Layout)
	}
	switch c.Resolver {
	case ResolverHeader, ResolverSubdomain, ResolverPath:
	default:
		return fmt.Errorf("%w: unknown TENANT_RESOLVER %q", errInvalidAppConfig, c.Resolver)
	}
	if c.Layout == LayoutPostgresSchema && strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("%w: DB_DSN is required for the postgres-schema layout", errInvalidAppConfig)
	}
	return nil
}

func (c AppConfig) configFunc() tenantdb.ConfigFunc {
	if c.Layout == LayoutPostgresSchema {
		return tenantdb.PostgresSchemaPerTenant(c.SchemaPrefix)
	}
	return tenantdb.SQLiteFilePerTenant(c.DataDir)
}

func (c AppConfig) resolver() tenant.Resolver {
	switch c.Resolver {
	case ResolverSubdomain:
		return tenant.NewSubdomainResolver(c.BaseDomain)
	case ResolverPath:
		// /api/{tenant}/...
		return tenant.NewPathResolver(2)
	}
	return tenant.NewHeaderResolver(c.Header)
}
