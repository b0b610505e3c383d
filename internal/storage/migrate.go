package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"rendita/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// openMigrator works on its own connection: closing the migrator closes the
// database handed to the driver.
func openMigrator(dbPath string) (*migrate.Migrate, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations brings the schema at dbPath up to date.
func RunMigrations(dbPath string) error {
	m, err := openMigrator(dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	slog.Debug("SQLite schema ready", log.FieldComponent, log.ComponentStorage, "path", dbPath, "version", version)
	return nil
}
