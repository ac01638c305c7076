package sqldb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/sqldb"
)

func TestDB_Transaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t, sqldb.Config{})
	counters, err := sqldb.RepositoryFor[Counter](db)
	require.NoError(t, err)

	count := func(t *testing.T) int64 {
		t.Helper()
		n, err := counters.CountBy(ctx, nil)
		require.NoError(t, err)
		return n
	}

	t.Run("commit", func(t *testing.T) {
		err := db.Transaction(ctx, func(ctx context.Context) error {
			assert.True(t, db.InTransaction(ctx))
			return counters.Insert(ctx, &Counter{Label: "committed"})
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count(t))
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.Transaction(ctx, func(ctx context.Context) error {
			require.NoError(t, counters.Insert(ctx, &Counter{Label: "discarded"}))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), count(t))
	})

	t.Run("rollback on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = db.Transaction(ctx, func(ctx context.Context) error {
				require.NoError(t, counters.Insert(ctx, &Counter{Label: "panicked"}))
				panic("boom")
			})
		})
		assert.Equal(t, int64(1), count(t))
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		boom := errors.New("outer failed")
		err := db.Transaction(ctx, func(ctx context.Context) error {
			err := db.Transaction(ctx, func(ctx context.Context) error {
				return counters.Insert(ctx, &Counter{Label: "inner"})
			})
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), count(t), "inner insert is rolled back with the outer transaction")
	})

	t.Run("transaction of another db is ignored", func(t *testing.T) {
		other := openTestDB(t, sqldb.Config{})
		err := other.Transaction(ctx, func(ctx context.Context) error {
			assert.False(t, db.InTransaction(ctx))
			return nil
		})
		require.NoError(t, err)
	})
}
