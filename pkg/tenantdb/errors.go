package tenantdb

import (
	"errors"
	"strings"
)

var (
	// ErrTenantIDNotProvided is returned when an operation needs a tenant
	// and the context carries none.
	ErrTenantIDNotProvided = errors.New("tenant id not provided")

	// ErrTenantConnectionNotFound matches every ConnectionNotFoundError.
	ErrTenantConnectionNotFound = errors.New("tenant connection not found")

	// ErrTenantExists matches every TenantsExistError.
	ErrTenantExists = errors.New("tenant already exists")

	ErrInvalidTenantID    = errors.New("invalid tenant id")
	ErrExtendNotSupported = errors.New("extending a tenant repository is not supported")
	ErrNilConnection      = errors.New("open func returned a nil connection")
	ErrHealthcheckFailed  = errors.New("tenant healthcheck failed")
	ErrRouterDestroyed    = errors.New("tenant router destroyed")
)

// ConnectionNotFoundError reports that no connection is registered for
// TenantID. TenantID is empty when no tenant is known at all.
type ConnectionNotFoundError struct {
	TenantID string
}

func (e *ConnectionNotFoundError) Error() string {
	if e.TenantID == "" {
		return ErrTenantConnectionNotFound.Error()
	}
	return "tenant connection not found: " + e.TenantID
}

func (e *ConnectionNotFoundError) Is(target error) bool {
	return target == ErrTenantConnectionNotFound
}

// TenantsExistError lists ids an add call found already registered or
// being added.
type TenantsExistError struct {
	TenantIDs []string
}

func (e *TenantsExistError) Error() string {
	return "tenants " + strings.Join(e.TenantIDs, ", ") + " already exist"
}

func (e *TenantsExistError) Is(target error) bool {
	return target == ErrTenantExists
}
