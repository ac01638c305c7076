// Package tenant carries the active tenant id through a context.Context
// and seeds it from HTTP requests.
//
// Every data access in a multi-tenant service needs to know which tenant
// it runs for. Rather than threading an id argument through every call,
// the id travels in the context that Go I/O calls already take:
//
//	err := tenant.Run(ctx, "acme", func(ctx context.Context) error {
//		return widgets.Insert(ctx, &Widget{Name: "gear"})
//	})
//
// Inside fn, tenant.IDFromContext(ctx) reports "acme". Runs may be nested;
// an inner Run shadows the outer id only inside its own callback, and
// concurrent goroutines never observe each other's ids because contexts
// are immutable.
//
// # HTTP
//
// Middleware resolves an identifier per request with a Resolver and
// stores it in the request context:
//
//	mw := tenant.Middleware(
//		tenant.NewCompositeResolver(
//			tenant.NewHeaderResolver(tenant.DefaultHeader),
//			tenant.NewSubdomainResolver(".app.com"),
//		),
//		tenant.WithKnownTenants(router.HasTenant),
//		tenant.WithSkipPaths("/healthz", "/metrics"),
//	)
//	r.Use(mw)
//	r.With(tenant.RequireTenant(nil)).Get("/widgets", listWidgets)
//
// Built-in resolvers read a header (X-Tenant-ID by default), the left-most
// subdomain or a path segment. CompositeResolver chains them. Identifiers
// must satisfy ValidIdentifier; the optional validator decides whether an
// identifier names a known tenant.
//
// The default error handler maps ErrUnknownTenant to 404,
// ErrInvalidIdentifier to 400 and ErrNoTenantInContext (from
// RequireTenant) to 401.
//
// # Logging
//
// LoggerExtractor plugs into logger.WithContextExtractors so that every
// record logged with a tenant context carries a tenant_id attribute.
package tenant
