// Package migration wraps golang-migrate for the billing schema. The server
// never migrates on boot; cmd/migrate drives these operations explicitly.
package migration

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies versioned SQL migrations from a file source to postgres
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New builds a Migrator over an existing database connection
func New(db *sql.DB, migrationsPath string, log *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	mg.log.Info("Applying pending migrations")

	err := mg.m.Up()
	if err == migrate.ErrNoChange {
		mg.log.Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return mg.reportVersion("Migrations applied")
}

// Down rolls back every applied migration
func (mg *Migrator) Down() error {
	mg.log.Info("Rolling back all migrations")

	err := mg.m.Down()
	if err == migrate.ErrNoChange {
		mg.log.Info("Nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}

	mg.log.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	mg.log.Info("Applying migration steps", zap.Int("steps", n))

	err := mg.m.Steps(n)
	if err == migrate.ErrNoChange {
		mg.log.Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration steps failed: %w", err)
	}

	return mg.reportVersion("Migration steps applied")
}

// GoTo migrates up or down to the given version
func (mg *Migrator) GoTo(version uint) error {
	mg.log.Info("Migrating to version", zap.Uint("target_version", version))

	err := mg.m.Migrate(version)
	if err == migrate.ErrNoChange {
		mg.log.Info("Already at target version")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}

	mg.log.Info("Migrated to version", zap.Uint("version", version))
	return nil
}

// Version reports the current schema version; 0 means no migrations applied
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running any SQL. Only for
// recovering a dirty schema after a failed migration.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing migration version", zap.Int("version", version))

	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}

	mg.log.Info("Migration version forced", zap.Int("version", version))
	return nil
}

// Drop removes every object in the database, data included
func (mg *Migrator) Drop() error {
	mg.log.Warn("Dropping database, all data will be lost")

	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}

	mg.log.Info("Database dropped")
	return nil
}

// Close releases the source and database handles
func (mg *Migrator) Close() error {
	sourceErr, dbErr := mg.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

func (mg *Migrator) reportVersion(msg string) error {
	version, dirty, err := mg.m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	mg.log.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
