package tenant

import (
	"context"
	"log/slog"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithID returns a copy of ctx carrying the tenant id. An id set on a
// derived context shadows the one of its parent only for that derived
// context and its own descendants.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the active tenant id.
// Returns "", false if no tenant is set or the stored id is empty.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// MustIDFromContext returns the active tenant id.
// Panics if no tenant is set. Use this only in handlers
// that absolutely require a tenant to function.
func MustIDFromContext(ctx context.Context) string {
	id, ok := IDFromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return id
}

// Run executes fn with a context carrying id and returns whatever fn
// returns. Calls may be nested; the inner id is visible only inside the
// inner fn.
func Run(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return fn(WithID(ctx, id))
}

// LoggerExtractor returns a ContextExtractor for the logger that extracts tenant ID from context
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id), true
		}
		return slog.Attr{}, false
	}
}
