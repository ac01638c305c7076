package sqldb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
)

type Widget struct {
	ID    uuid.UUID `db:"id,pk"`
	Name  string    `db:"name,unique"`
	Price float64   `db:"price"`
	Note  *string   `db:"note"`
}

type Counter struct {
	ID    int64  `db:"id"`
	Label string `db:"label"`
}

func (Counter) TableName() string { return "counters" }

func sqliteDSN(t *testing.T, name string) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), name) + "?_busy_timeout=5000"
}

func openTestDB(t *testing.T, cfg sqldb.Config) *sqldb.DB {
	t.Helper()

	if cfg.DSN == "" {
		cfg.DSN = sqliteDSN(t, "test.db")
	}
	if cfg.Entities == nil {
		cfg.Entities = []any{Widget{}, Counter{}}
		cfg.Synchronize = true
	}

	ctx := context.Background()
	db, err := sqldb.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Destroy(context.Background()) })

	require.NoError(t, db.Initialize(ctx))
	return db
}

func ptr[T any](v T) *T { return &v }
