package infra

import (
	"errors"
	"fmt"
	"log/slog"

	infra_repository "github.com/amirasaad/securebank/infra/repository"
	"github.com/amirasaad/securebank/internal/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// RunMigrations brings the schema up to date. PostgreSQL uses the versioned
// SQL files; SQLite is built from the GORM models, which carry the same
// constraints.
func RunMigrations(db *gorm.DB, driver string, logger *slog.Logger) error {
	if driver == "sqlite" {
		logger.Info("Auto-migrating sqlite schema")
		return db.AutoMigrate(infra_repository.Models()...)
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("Database migrated", "version", version, "dirty", dirty)
	return nil
}

// RollbackMigrations reverts the given number of migration steps.
func RollbackMigrations(db *gorm.DB, steps int, logger *slog.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	logger.Info("Database rolled back", "steps", steps)
	return nil
}

// newMigrator is never closed: closing it would close the pool shared
// with GORM.
func newMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrate driver: %w", err)
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}
