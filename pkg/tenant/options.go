package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Validator decides whether a resolved identifier names a known tenant.
// It returns ErrUnknownTenant (or an error wrapping it) for unknown ids.
type Validator func(ctx context.Context, id string) error

// config holds middleware configuration.
type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
	validator    Validator
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithValidator rejects identifiers the validator does not accept.
func WithValidator(v Validator) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithKnownTenants is a Validator built from a membership check such as
// the router's HasTenant.
func WithKnownTenants(has func(id string) bool) Option {
	return WithValidator(func(_ context.Context, id string) error {
		if !has(id) {
			return ErrUnknownTenant
		}
		return nil
	})
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownTenant):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidIdentifier):
		http.Error(w, "Invalid tenant identifier", http.StatusBadRequest)
	case errors.Is(err, ErrNoTenantInContext):
		http.Error(w, "Tenant id not provided", http.StatusUnauthorized)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
