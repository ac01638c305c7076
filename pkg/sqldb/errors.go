package sqldb

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrEmptyDSN                 = errors.New("empty data source name, use DB_DSN env var")
	ErrUnsupportedDriver        = errors.New("unsupported database driver")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
	ErrSynchronizeFailed        = errors.New("failed to synchronize schema")
	ErrInvalidEntity            = errors.New("invalid entity definition")
	ErrEntityMetadataNotFound   = errors.New("entity metadata not found")
	ErrUnknownColumn            = errors.New("unknown column")
	ErrEmptyCriteria            = errors.New("empty criteria is not allowed for this operation")
	ErrNotFound                 = errors.New("record not found")
	ErrNilEntity                = errors.New("nil entity")
)

// IsNotFoundError detects "no rows" results from repositories and both drivers.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// IsTxClosedError detects attempts to use a committed or rolled back transaction.
func IsTxClosedError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrTxDone) || errors.Is(err, pgx.ErrTxClosed)
}

// IsDuplicateKeyError detects unique and primary key violations
// (SQLSTATE 23505 on postgres, SQLITE_CONSTRAINT_UNIQUE/PRIMARYKEY on sqlite).
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyViolationError detects referential integrity violations.
func IsForeignKeyViolationError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
