package sqldb

// PostgresConnConfig exposes the postgres connection config for tests.
var PostgresConnConfig = postgresConnConfig
