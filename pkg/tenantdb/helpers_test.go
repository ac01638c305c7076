package tenantdb_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

type Widget struct {
	ID   uuid.UUID `db:"id,pk"`
	Name string    `db:"name"`
}

func baseConfig() sqldb.Config {
	return sqldb.Config{
		Entities:    []any{Widget{}},
		Synchronize: true,
	}
}

// newRouter builds a router storing each tenant in its own sqlite file.
func newRouter(t *testing.T, opts ...tenantdb.Option) *tenantdb.Router {
	t.Helper()

	opts = append([]tenantdb.Option{tenantdb.WithConfigFunc(tenantdb.SQLiteFilePerTenant(t.TempDir()))}, opts...)
	r, err := tenantdb.New(baseConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Destroy(context.Background()) })
	return r
}

func ctxFor(id string) context.Context {
	return tenant.WithID(context.Background(), id)
}

// fakeConn is a Conn whose lifecycle is observable. Unset methods fall
// through to Unavailable.
type fakeConn struct {
	tenantdb.Conn

	initialized atomic.Bool
	destroyed   atomic.Bool
	initErr     error
	schema      *sqldb.Schema
}

func newFakeConn() *fakeConn {
	return &fakeConn{Conn: tenantdb.Unavailable}
}

func (c *fakeConn) Initialize(context.Context) error {
	if c.initErr != nil {
		return c.initErr
	}
	c.initialized.Store(true)
	return nil
}

func (c *fakeConn) IsInitialized() bool { return c.initialized.Load() }

func (c *fakeConn) Destroy(context.Context) error {
	c.destroyed.Store(true)
	return nil
}

func (c *fakeConn) Metadata() *sqldb.Schema { return c.schema }
