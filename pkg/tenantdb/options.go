package tenantdb

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Router.
type Option func(*Router)

// WithTenantIDFunc replaces the source of the active tenant id.
// The default reads tenant.IDFromContext.
func WithTenantIDFunc(fn TenantIDFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.tenantID = fn
		}
	}
}

// WithConfigFunc sets how a tenant's connection config is derived from
// the base config. The default, SameConfig, leaves it unchanged.
func WithConfigFunc(fn ConfigFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.configFor = fn
		}
	}
}

// WithOpenFunc replaces how tenant connections are opened.
func WithOpenFunc(fn OpenFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.open = fn
		}
	}
}

// WithSchemaFunc replaces how shared metadata is built when no tenant
// connection exists to take it from.
func WithSchemaFunc(fn SchemaFunc) Option {
	return func(r *Router) {
		if fn != nil {
			r.buildSchema = fn
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics registers the router's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Router) {
		r.metricsReg = reg
	}
}
