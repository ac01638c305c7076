package sqldb

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/dmitrymomot/multitenant/pkg/logger"
)

// Migration describes one applied or rolled back migration.
type Migration struct {
	Version   int64
	Source    string
	Direction string
	Duration  time.Duration
}

// RunMigrations applies every pending migration and returns those applied.
// It is a no-op when no migrations are configured.
func (d *DB) RunMigrations(ctx context.Context) ([]Migration, error) {
	if !d.cfg.hasMigrations() {
		return nil, nil
	}
	p, err := d.migrationProvider()
	if err != nil {
		return nil, err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToApplyMigrations, err)
	}

	applied := make([]Migration, 0, len(results))
	for _, res := range results {
		m := migrationFromResult(res)
		d.log.InfoContext(ctx, "migration applied",
			logger.Version(m.Version), slog.String("source", m.Source), logger.Duration(m.Duration))
		applied = append(applied, m)
	}
	return applied, nil
}

// UndoLastMigration rolls back the most recently applied migration.
// Nothing happens when no migration is applied.
func (d *DB) UndoLastMigration(ctx context.Context) error {
	if !d.cfg.hasMigrations() {
		return nil
	}
	p, err := d.migrationProvider()
	if err != nil {
		return err
	}

	res, err := p.Down(ctx)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return nil
		}
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if res != nil {
		m := migrationFromResult(res)
		d.log.InfoContext(ctx, "migration reverted",
			logger.Version(m.Version), slog.String("source", m.Source))
	}
	return nil
}

// ShowMigrations reports whether there are migrations not applied yet.
func (d *DB) ShowMigrations(ctx context.Context) (bool, error) {
	if !d.cfg.hasMigrations() {
		return false, nil
	}
	p, err := d.migrationProvider()
	if err != nil {
		return false, err
	}
	return p.HasPending(ctx)
}

func (d *DB) migrationProvider() (*goose.Provider, error) {
	fsys, err := d.migrationsFS()
	if err != nil {
		return nil, err
	}

	dialect := database.DialectSQLite3
	if d.dialect == DialectPostgres {
		dialect = database.DialectPostgres
	}
	store, err := database.NewStore(dialect, d.cfg.MigrationsTable)
	if err != nil {
		return nil, errors.Join(ErrFailedToApplyMigrations, err)
	}

	p, err := goose.NewProvider("", d.db.DB, fsys, goose.WithStore(store))
	if err != nil {
		return nil, errors.Join(ErrFailedToApplyMigrations, err)
	}
	return p, nil
}

func (d *DB) migrationsFS() (fs.FS, error) {
	if d.cfg.Migrations != nil {
		if d.cfg.MigrationsPath == "" {
			return d.cfg.Migrations, nil
		}
		sub, err := fs.Sub(d.cfg.Migrations, d.cfg.MigrationsPath)
		if err != nil {
			return nil, errors.Join(ErrMigrationsDirNotFound, err)
		}
		return sub, nil
	}

	if _, err := os.Stat(d.cfg.MigrationsPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Join(ErrMigrationsDirNotFound, err)
		}
		return nil, errors.Join(ErrFailedToApplyMigrations, err)
	}
	return os.DirFS(d.cfg.MigrationsPath), nil
}

func migrationFromResult(res *goose.MigrationResult) Migration {
	m := Migration{
		Direction: res.Direction,
		Duration:  res.Duration,
	}
	if res.Source != nil {
		m.Version = res.Source.Version
		m.Source = res.Source.Path
	}
	return m
}
