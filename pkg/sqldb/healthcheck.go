package sqldb

import (
	"context"
	"errors"
)

// Healthcheck returns a closure suitable for health endpoints.
func Healthcheck(db *DB) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
