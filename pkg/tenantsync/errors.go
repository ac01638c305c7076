package tenantsync

import "errors"

var (
	ErrUnknownSource      = errors.New("unknown tenant source")
	ErrSourceFailed       = errors.New("failed to list tenants")
	ErrInvalidTenantsFile = errors.New("invalid tenants file")
	ErrMissingDependency  = errors.New("tenant source dependency not provided")
	ErrNilSource          = errors.New("tenant source is nil")
	ErrNilTarget          = errors.New("tenant target is nil")
)
