package tenantdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

func TestHealthcheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no tenants", func(t *testing.T) {
		r := newRouter(t)
		assert.NoError(t, tenantdb.Healthcheck(r)(ctx))
	})

	t.Run("all tenants reachable", func(t *testing.T) {
		r := newRouter(t)
		require.NoError(t, r.AddTenants(ctx, []string{"acme", "globex"}))
		assert.NoError(t, tenantdb.Healthcheck(r)(ctx))
	})

	t.Run("unreachable tenant", func(t *testing.T) {
		r, err := tenantdb.New(baseConfig(), tenantdb.WithOpenFunc(func(context.Context, sqldb.Config) (tenantdb.Conn, error) {
			return newFakeConn(), nil
		}))
		require.NoError(t, err)
		require.NoError(t, r.AddTenant(ctx, "acme"))

		err = tenantdb.Healthcheck(r)(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrHealthcheckFailed)
		assert.ErrorIs(t, err, tenantdb.ErrTenantConnectionNotFound)
		assert.Contains(t, err.Error(), "tenant acme")
	})
}
