// Command tenantdemo serves a small notes API where every tenant's notes
// live in a separate database (one SQLite file or one Postgres schema per
// tenant). The set of tenants is reconciled periodically from a configurable
// source, and the tenant of each request is taken from a header, subdomain
// or path segment.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/multitenant/pkg/config"
	"github.com/dmitrymomot/multitenant/pkg/httpserver"
	"github.com/dmitrymomot/multitenant/pkg/logger"
	"github.com/dmitrymomot/multitenant/pkg/redis"
	"github.com/dmitrymomot/multitenant/pkg/sqldb"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
	"github.com/dmitrymomot/multitenant/pkg/tenantsync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg AppConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts, err := cfg.Log.Options()
	if err != nil {
		return err
	}
	log := logger.New(append(logOpts,
		logger.WithContextExtractors(tenant.LoggerExtractor()),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)...)
	logger.SetAsDefault(log)

	base, err := cfg.baseDBConfig()
	if err != nil {
		return err
	}
	router, err := tenantdb.New(base,
		tenantdb.WithConfigFunc(cfg.configFunc()),
		tenantdb.WithLogger(log.With(logger.Component("tenantdb"))),
		tenantdb.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Destroy(context.WithoutCancel(ctx)); err != nil {
			log.ErrorContext(ctx, "failed to close tenant connections", logger.Error(err))
		}
	}()

	checks := []httpserver.Check{{Name: "tenants", Fn: tenantdb.Healthcheck(router)}}

	deps := tenantsync.Dependencies{}
	var store tenantStore
	if cfg.Tenants.Source == tenantsync.SourceRedis {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Redis = client
		store = redis.NewTenantSet(client, cfg.Tenants.RedisKey)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	}
	if cfg.Tenants.Source == tenantsync.SourceSQL {
		registry, err := sqldb.Open(ctx, cfg.registryDBConfig(), sqldb.WithLogger(log))
		if err != nil {
			return err
		}
		defer func() { _ = registry.Destroy(context.WithoutCancel(ctx)) }()
		if err := registry.Initialize(ctx); err != nil {
			return err
		}
		deps.DB = registry.SQL()
		checks = append(checks, httpserver.Check{Name: "registry", Fn: sqldb.Healthcheck(registry)})
	}

	source, err := tenantsync.NewSource(cfg.Tenants, deps)
	if err != nil {
		return err
	}
	reconciler, err := tenantsync.New(source, router,
		tenantsync.WithInterval(cfg.Tenants.Interval),
		tenantsync.WithLogger(log.With(logger.Component("tenantsync"))),
		tenantsync.WithoutInitialSync(),
	)
	if err != nil {
		return err
	}

	// The first sync opens every known tenant before traffic is accepted,
	// so the background reconciler starts on its first tick.
	if err := reconciler.Sync(ctx); err != nil {
		return err
	}
	if err := router.Initialize(ctx); err != nil {
		return err
	}

	handler := newHandler(apiDeps{
		Router:     router,
		Resolver:   cfg.resolver(),
		PathTenant: cfg.Resolver == ResolverPath,
		Store:      store,
		Sync:       reconciler.Sync,
		AdminToken: cfg.AdminToken,
		Metrics:    promhttp.Handler(),
		Checks:     checks,
		Log:        log,
	})
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start(gctx, handler))
	g.Go(reconciler.Run(gctx))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.InfoContext(ctx, "shutdown complete", logger.Tenants(router.GetTenants()))
	return nil
}

var _ tenantStore = (*redis.TenantSet)(nil)

// registryDBConfig points at the shared database holding the tenants table
// for the sql source. It never synchronizes or migrates.
func (c AppConfig) registryDBConfig() sqldb.Config {
	reg := c.DB
	reg.Synchronize = false
	reg.MigrationsPath = ""
	reg.Migrations = nil
	reg.Entities = nil
	return reg
}

// baseDBConfig is the configuration every tenant connection derives from.
func (c AppConfig) baseDBConfig() (sqldb.Config, error) {
	base := c.DB
	base.Entities = []any{Note{}}
	if base.MigrationsPath == "" {
		sub, err := fs.Sub(migrations, "migrations")
		if err != nil {
			return base, err
		}
		base.Migrations = sub
	}
	if c.Layout == LayoutPostgresSchema {
		base.Driver = sqldb.DriverPostgres
	} else {
		base.Driver = sqldb.DriverSQLite
	}
	return base, nil
}
