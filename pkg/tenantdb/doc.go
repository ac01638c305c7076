// Package tenantdb routes database operations to one connection per
// tenant while application code talks to it as if it were a single
// database.
//
// A Router owns a registry of tenant connections. Each operation reads the
// active tenant id from its context (see package tenant), looks up that
// tenant's connection and runs there. Nothing is bound at construction
// time, so one Router, and one Repository per entity type, serves every
// tenant concurrently.
//
// # Setup
//
//	router, err := tenantdb.New(sqldb.Config{
//		Entities:    []any{Widget{}},
//		Synchronize: true,
//	},
//		tenantdb.WithConfigFunc(tenantdb.SQLiteFilePerTenant("./data")),
//		tenantdb.WithLogger(log),
//		tenantdb.WithMetrics(prometheus.DefaultRegisterer),
//	)
//	if err != nil {
//		return err
//	}
//	defer router.Destroy(ctx)
//
//	if err := router.AddTenants(ctx, []string{"acme", "globex"}); err != nil {
//		return err
//	}
//
// ConfigFunc derives each tenant's connection config from the base one.
// SQLiteFilePerTenant gives every tenant its own database file;
// PostgresSchemaPerTenant puts tenants in separate schemas of one
// database. Any other layout is a custom ConfigFunc.
//
// # Data access
//
//	widgets := tenantdb.GetRepository[Widget](router)
//
//	err := tenant.Run(ctx, "acme", func(ctx context.Context) error {
//		return widgets.Insert(ctx, &Widget{Name: "gear"})
//	})
//
// Raw SQL, transactions and query builders go through the Router itself
// (Exec, Query, QueryRow, Transaction, CreateQueryBuilder). Inside a
// Transaction callback, every call made with the callback's ctx joins the
// transaction on the same tenant connection.
//
// # Errors
//
// Without a tenant in ctx operations fail with ErrTenantIDNotProvided.
// For an id that is not registered they fail with *ConnectionNotFoundError,
// which matches ErrTenantConnectionNotFound. Adding an id twice fails with
// *TenantsExistError, which matches ErrTenantExists. Errors from the
// database engine are returned unchanged.
//
// # Lifecycle
//
// AddTenants, RemoveTenants and SetTenants change the registry at runtime
// and may race with each other and with traffic; concurrent adds of the
// same id are rejected rather than opening two connections. Initialize,
// Destroy and the schema operations (Synchronize, DropDatabase,
// RunMigrations, UndoLastMigration, ShowMigrations) fan out to every
// registered tenant concurrently.
package tenantdb
