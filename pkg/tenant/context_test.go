package tenant_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/tenant"
)

func TestIDFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns stored id", func(t *testing.T) {
		t.Parallel()

		ctx := tenant.WithID(context.Background(), "acme")
		id, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "acme", id)
	})

	t.Run("absent outside any run", func(t *testing.T) {
		t.Parallel()

		id, ok := tenant.IDFromContext(context.Background())
		assert.False(t, ok)
		assert.Empty(t, id)
	})

	t.Run("empty id counts as absent", func(t *testing.T) {
		t.Parallel()

		_, ok := tenant.IDFromContext(tenant.WithID(context.Background(), ""))
		assert.False(t, ok)
	})

	t.Run("survives cancellation and unrelated values", func(t *testing.T) {
		t.Parallel()

		type otherKey struct{}
		ctx, cancel := context.WithCancel(tenant.WithID(context.Background(), "acme"))
		ctx = context.WithValue(ctx, otherKey{}, "value")
		cancel()

		id, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "acme", id)
		assert.Equal(t, "value", ctx.Value(otherKey{}))
	})
}

func TestMustIDFromContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acme", tenant.MustIDFromContext(tenant.WithID(context.Background(), "acme")))
	assert.PanicsWithValue(t, "tenant: no tenant in context", func() {
		tenant.MustIDFromContext(context.Background())
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("returns the callback result", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		err := tenant.Run(context.Background(), "acme", func(ctx context.Context) error {
			assert.Equal(t, "acme", tenant.MustIDFromContext(ctx))
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nested runs shadow only inside the inner callback", func(t *testing.T) {
		t.Parallel()

		var seen []string
		record := func(ctx context.Context) {
			id, _ := tenant.IDFromContext(ctx)
			seen = append(seen, id)
		}

		err := tenant.Run(context.Background(), "A", func(ctx context.Context) error {
			record(ctx)
			err := tenant.Run(ctx, "B", func(ctx context.Context) error {
				record(ctx)
				return nil
			})
			record(ctx)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "A"}, seen)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := tenant.LoggerExtractor()

	attr, ok := extract(tenant.WithID(context.Background(), "acme"))
	require.True(t, ok)
	assert.Equal(t, slog.String("tenant_id", "acme"), attr)

	_, ok = extract(context.Background())
	assert.False(t, ok)
}

func TestValidIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"acme", true},
		{"tenant_01-eu", true},
		{"", false},
		{"../etc", false},
		{"acme corp", false},
		{"a.b", false},
		{string(make([]byte, tenant.MaxIdentifierLength+1)), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tenant.ValidIdentifier(tt.id), "id %q", tt.id)
	}
}
