package tenant

import "errors"

var (
	// ErrUnknownTenant is returned when the resolved identifier names no registered tenant.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInvalidPathPosition is returned by a PathResolver configured with a position below 1.
	ErrInvalidPathPosition = errors.New("invalid path position")
)
