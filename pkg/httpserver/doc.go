// Package httpserver runs an http.Server with context-driven graceful
// shutdown and provides liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Start(ctx, handler))
//	return g.Wait()
//
// Run blocks until the context is cancelled, then calls Shutdown, which
// waits for in-flight requests up to the configured shutdown timeout.
// Signal handling is left to the caller (signal.NotifyContext).
package httpserver
