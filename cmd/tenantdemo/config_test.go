package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/config"
	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

func TestAppConfig_Validate(t *testing.T) {
	t.Parallel()
	valid := AppConfig{Layout: LayoutSQLiteFile, Resolver: ResolverHeader}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"sqlite header", func(*AppConfig) {}, false},
		{"unknown layout", func(c *AppConfig) { c.Layout = "mysql" }, true},
		{"unknown resolver", func(c *AppConfig) { c.Resolver = "cookie" }, true},
		{"postgres without dsn", func(c *AppConfig) { c.Layout = LayoutPostgresSchema }, true},
		{"postgres with dsn", func(c *AppConfig) {
			c.Layout = LayoutPostgresSchema
			c.DB.DSN = "postgres://localhost/app"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidAppConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppConfig_Load(t *testing.T) {
	config.ResetCache()
	t.Setenv("TENANT_LAYOUT", LayoutSQLiteFile)
	t.Setenv("TENANT_RESOLVER", ResolverPath)
	t.Setenv("TENANTS", "acme,globex")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9090")

	var cfg AppConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, []string{"acme", "globex"}, cfg.Tenants.Tenants)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, ResolverPath, cfg.Resolver)
	assert.IsType(t, &tenant.PathResolver{}, cfg.resolver())

	t.Setenv("TENANT_LAYOUT", "nope")
	assert.ErrorIs(t, config.Reload(&cfg), config.ErrInvalidConfig)
}

func TestAppConfig_BaseDBConfig(t *testing.T) {
	t.Parallel()

	base, err := AppConfig{Layout: LayoutPostgresSchema}.baseDBConfig()
	require.NoError(t, err)
	assert.Equal(t, sqldb.DriverPostgres, base.Driver)
	assert.NotNil(t, base.Migrations)
	assert.Len(t, base.Entities, 1)

	base, err = AppConfig{Layout: LayoutSQLiteFile, DB: sqldb.Config{MigrationsPath: "/srv/migrations"}}.baseDBConfig()
	require.NoError(t, err)
	assert.Equal(t, sqldb.DriverSQLite, base.Driver)
	assert.Nil(t, base.Migrations)

	reg := AppConfig{DB: sqldb.Config{DSN: "file:registry.db", Synchronize: true, MigrationsPath: "x"}}.registryDBConfig()
	assert.Equal(t, "file:registry.db", reg.DSN)
	assert.False(t, reg.Synchronize)
	assert.Empty(t, reg.MigrationsPath)
}
