package tenantdb

import (
	"context"
	"errors"
)

// Healthcheck returns a readiness check that pings every registered tenant
// connection. A router with no tenants is healthy. Failures are wrapped in
// ErrHealthcheckFailed.
func Healthcheck(r *Router) func(context.Context) error {
	return func(ctx context.Context) error {
		err := r.each(ctx, func(ctx context.Context, conn Conn) error {
			return conn.Ping(ctx)
		})
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
