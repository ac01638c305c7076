// Package logger builds *slog.Logger instances with consistent defaults for
// the services in this module.
//
// New takes functional options for level, format, output and static
// attributes. Environment presets (WithDevelopment, WithStaging,
// WithProduction, WithEnvironment) select level and format in one call, and
// Config maps the usual LOG_LEVEL/LOG_FORMAT/APP_ENV variables onto those
// options.
//
// The returned logger wraps its handler in LogHandlerDecorator, which runs
// ContextExtractor callbacks on every record. That is how request-scoped
// values such as the active tenant end up in log lines without threading
// them through every call:
//
//	log := logger.New(
//		logger.WithProduction("api"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "widget created", logger.Count("widgets", n))
//
// Attribute helpers (Error, Errors, TenantID, Tenants, Component, ...) keep
// key names uniform. Error and Errors return an empty attribute for nil
// errors, so they can be passed unconditionally.
package logger
