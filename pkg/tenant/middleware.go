package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/multitenant/pkg/logger"
)

// Middleware resolves the tenant identifier of each request and stores
// it in the request context, where the tenant router picks it up.
// Requests without an identifier pass through untouched; combine with
// RequireTenant on routes that cannot work without one.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := resolver.Resolve(r)
			if err != nil {
				cfg.logger.WarnContext(r.Context(), "tenant resolution failed", logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !ValidIdentifier(id) {
				cfg.errorHandler(w, r, ErrInvalidIdentifier)
				return
			}

			if cfg.validator != nil {
				if err := cfg.validator(r.Context(), id); err != nil {
					if !errors.Is(err, ErrUnknownTenant) {
						cfg.logger.ErrorContext(r.Context(), "tenant validation failed", logger.TenantID(id), logger.Error(err))
					}
					cfg.errorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// RequireTenant rejects requests whose context carries no tenant id.
// The default handler answers 401.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IDFromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
