// Package tenantsync keeps the tenant router's registry in step with an
// external list of tenants.
//
// A Source lists the tenants that should be served: a static list, a
// YAML file, a control-plane SQL table or a redis set. A Reconciler reads
// it once at startup and then on every interval, handing the result to
// the router's SetTenants so new tenants get a connection and removed
// ones are closed.
//
//	src, err := tenantsync.NewSource(cfg, tenantsync.Dependencies{Redis: rdb})
//	if err != nil {
//		return err
//	}
//	rec, err := tenantsync.New(src, router, tenantsync.WithInterval(cfg.Interval))
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(rec.Run(ctx))
//
// The first sync inside Run must succeed or Run returns its error. Later
// failures are logged and retried on the next tick.
package tenantsync
