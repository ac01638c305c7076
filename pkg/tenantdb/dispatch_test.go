package tenantdb_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

func TestRouter_Resolve(t *testing.T) {
	t.Parallel()

	r := newRouter(t)
	require.NoError(t, r.AddTenant(context.Background(), "acme"))

	t.Run("no tenant in context", func(t *testing.T) {
		_, err := r.Resolve(context.Background())
		assert.ErrorIs(t, err, tenantdb.ErrTenantIDNotProvided)
	})

	t.Run("tenant never added", func(t *testing.T) {
		_, err := r.Resolve(ctxFor("globex"))
		var notFound *tenantdb.ConnectionNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "globex", notFound.TenantID)
		assert.ErrorIs(t, err, tenantdb.ErrTenantConnectionNotFound)
	})

	t.Run("registered tenant", func(t *testing.T) {
		conn, err := r.Resolve(ctxFor("acme"))
		require.NoError(t, err)
		assert.True(t, conn.IsInitialized())
	})

	t.Run("manager falls back to unavailable", func(t *testing.T) {
		assert.Equal(t, tenantdb.Unavailable, r.Manager(context.Background()))
		assert.NotEqual(t, tenantdb.Unavailable, r.Manager(ctxFor("acme")))
	})
}

func TestRouter_CustomTenantIDFunc(t *testing.T) {
	t.Parallel()

	type orgKey struct{}
	r := newRouter(t, tenantdb.WithTenantIDFunc(func(ctx context.Context) (string, bool) {
		id, ok := ctx.Value(orgKey{}).(string)
		return id, ok
	}))
	require.NoError(t, r.AddTenant(context.Background(), "acme"))

	require.NoError(t, r.Ping(context.WithValue(context.Background(), orgKey{}, "acme")))
	assert.ErrorIs(t, r.Ping(ctxFor("acme")), tenantdb.ErrTenantIDNotProvided)
}

func TestRouter_PassThrough(t *testing.T) {
	t.Parallel()

	r := newRouter(t)
	require.NoError(t, r.AddTenants(context.Background(), []string{"t1", "t2"}))
	t1, t2 := ctxFor("t1"), ctxFor("t2")

	_, err := r.Exec(t1, `INSERT INTO widget (id, name) VALUES (?, ?)`, "w-1", "gear")
	require.NoError(t, err)

	var n int
	require.NoError(t, r.QueryRow(t1, `SELECT COUNT(*) FROM widget`).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, r.QueryRow(t2, `SELECT COUNT(*) FROM widget`).Scan(&n))
	assert.Zero(t, n, "t2 never sees t1 rows")

	rows, err := r.Query(t1, `SELECT name FROM widget`)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())

	b, err := r.CreateQueryBuilder(t1)
	require.NoError(t, err)
	count, err := b.From("widget").Count(t1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	t.Run("resolution errors", func(t *testing.T) {
		ctx := context.Background()
		_, err := r.Exec(ctx, `SELECT 1`)
		assert.ErrorIs(t, err, tenantdb.ErrTenantIDNotProvided)
		_, err = r.Query(ctx, `SELECT 1`)
		assert.ErrorIs(t, err, tenantdb.ErrTenantIDNotProvided)
		assert.ErrorIs(t, r.QueryRow(ctx, `SELECT 1`).Scan(&n), tenantdb.ErrTenantIDNotProvided)
		_, err = r.CreateQueryBuilder(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrTenantIDNotProvided)
		assert.ErrorIs(t, r.Transaction(ctx, func(context.Context) error { return nil }), tenantdb.ErrTenantIDNotProvided)
	})
}

func TestRouter_Transaction(t *testing.T) {
	t.Parallel()

	r := newRouter(t)
	require.NoError(t, r.AddTenant(context.Background(), "acme"))
	ctx := ctxFor("acme")

	boom := errors.New("abort")
	err := r.TransactionWithOptions(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		_, err := r.Exec(ctx, `INSERT INTO widget (id, name) VALUES (?, ?)`, "w-1", "gear")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = r.Transaction(ctx, func(ctx context.Context) error {
		_, err := r.Exec(ctx, `INSERT INTO widget (id, name) VALUES (?, ?)`, "w-2", "spring")
		return err
	})
	require.NoError(t, err)

	var names []string
	rows, err := r.Query(ctx, `SELECT name FROM widget`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	assert.Equal(t, []string{"spring"}, names)
}

func TestRouter_DialectAndDriver(t *testing.T) {
	t.Parallel()

	r, err := tenantdb.New(sqldb.Config{Driver: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, sqldb.DriverPostgres, r.DriverName())
	assert.Equal(t, sqldb.DialectPostgres, r.Dialect())

	r, err = tenantdb.New(sqldb.Config{})
	require.NoError(t, err)
	assert.Equal(t, sqldb.DriverSQLite, r.DriverName())
	assert.Equal(t, sqldb.DialectSQLite, r.Dialect())
}

var notesMigrations = fstest.MapFS{
	"00001_notes.sql": {Data: []byte("-- +goose Up\nCREATE TABLE notes (id INTEGER PRIMARY KEY);\n-- +goose Down\nDROP TABLE notes;\n")},
}

func TestRouter_SchemaFanOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := baseConfig()
	base.Migrations = notesMigrations
	r, err := tenantdb.New(base,
		tenantdb.WithConfigFunc(tenantdb.SQLiteFilePerTenant(t.TempDir())),
		tenantdb.WithOpenFunc(func(ctx context.Context, cfg sqldb.Config) (tenantdb.Conn, error) {
			// open without initializing so migrations stay pending
			return sqldb.Open(ctx, cfg)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Destroy(context.Background()) })

	pending, err := r.ShowMigrations(ctx)
	require.NoError(t, err)
	assert.False(t, pending, "nothing is pending without tenants")

	require.NoError(t, r.AddTenants(ctx, []string{"t1", "t2"}))

	pending, err = r.ShowMigrations(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	applied, err := r.RunMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, int64(1), applied[0].Version)

	pending, err = r.ShowMigrations(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, r.Synchronize(ctx, false))
	for _, id := range []string{"t1", "t2"} {
		var n int
		require.NoError(t, r.QueryRow(ctxFor(id), `SELECT COUNT(*) FROM notes`).Scan(&n))
		require.NoError(t, r.QueryRow(ctxFor(id), `SELECT COUNT(*) FROM widget`).Scan(&n))
	}

	require.NoError(t, r.UndoLastMigration(ctx))
	pending, err = r.ShowMigrations(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, r.DropDatabase(ctx))
	var n int
	assert.Error(t, r.QueryRow(ctxFor("t1"), `SELECT COUNT(*) FROM widget`).Scan(&n))
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	u := tenantdb.Unavailable

	checks := map[string]error{
		"Initialize":        u.Initialize(ctx),
		"Destroy":           u.Destroy(ctx),
		"Ping":              u.Ping(ctx),
		"Transaction":       u.Transaction(ctx, func(context.Context) error { return nil }),
		"Synchronize":       u.Synchronize(ctx, false),
		"DropDatabase":      u.DropDatabase(ctx),
		"UndoLastMigration": u.UndoLastMigration(ctx),
		"QueryRow":          u.QueryRow(ctx, "SELECT 1").Err(),
	}
	_, checks["Exec"] = u.Exec(ctx, "SELECT 1")
	rows, err := u.Query(ctx, "SELECT 1")
	assert.Nil(t, rows)
	checks["Query"] = err
	_, checks["RunMigrations"] = u.RunMigrations(ctx)
	_, checks["ShowMigrations"] = u.ShowMigrations(ctx)
	_, checks["QueryBuilder"] = u.CreateQueryBuilder().From("widget").Count(ctx)

	for name, err := range checks {
		assert.ErrorIs(t, err, tenantdb.ErrTenantConnectionNotFound, name)
		assert.Equal(t, "tenant connection not found", err.Error(), name)
	}
	assert.False(t, u.IsInitialized())
	assert.Nil(t, u.Metadata())
}
