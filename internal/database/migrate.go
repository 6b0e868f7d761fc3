package database

import (
	"database/sql"
	"errors"
	"fmt"

	"spendly/internal/logger"
	"spendly/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

// NewMigrator builds a migrate instance over the embedded SQL for the
// configured driver. Callers own the returned instance and must Close it.
func NewMigrator(config *Config) (*migrate.Migrate, error) {
	switch config.Driver {
	case DriverPostgres:
		src, err := iofs.New(migrations.FS, "postgres")
		if err != nil {
			return nil, fmt.Errorf("failed to open migration source: %w", err)
		}
		mig, err := migrate.NewWithSourceInstance("iofs", src, config.MigrationURL())
		if err != nil {
			return nil, fmt.Errorf("failed to create migrate instance: %w", err)
		}
		return mig, nil
	case DriverSQLite:
		return newSQLiteMigrator(config.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}

// RunMigrations applies pending SQL migrations for the configured driver.
func RunMigrations(config *Config) error {
	logger.Get().Info("Running database migrations...")

	mig, err := NewMigrator(config)
	if err != nil {
		return err
	}
	defer CloseMigrator(mig)

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// MigrateSQLiteDSN applies the SQLite migrations through a dedicated
// connection to dsn. In-memory shared-cache databases survive because the
// caller keeps its own connection open.
func MigrateSQLiteDSN(dsn string) error {
	mig, err := newSQLiteMigrator(dsn)
	if err != nil {
		return err
	}
	defer CloseMigrator(mig)

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CloseMigrator closes both halves of a migrate instance, logging failures.
func CloseMigrator(mig *migrate.Migrate) {
	srcErr, dbErr := mig.Close()
	if srcErr != nil {
		logger.Get().Warnf("migrate source close error: %v", srcErr)
	}
	if dbErr != nil {
		logger.Get().Warnf("migrate database close error: %v", dbErr)
	}
}

func newSQLiteMigrator(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite for migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}

	mig, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mig, nil
}
