package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-complaints/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// CoreTables must exist after any migration path.
var CoreTables = []string{
	"accounts",
	"profiles",
	"user_roles",
	"complaints",
	"complaint_attachments",
	"complaint_status_history",
	"admin_notes",
}

// Migrate brings the schema up to date. On PostgreSQL with sqlMigrations set
// it applies the embedded SQL migrations (enum types, row-level security
// policies, the has_role definer function). Everywhere else it falls back to
// AutoMigrate, which carries the enum CHECK constraints from the model tags.
func Migrate(db *gorm.DB, databaseURL string, sqlMigrations bool, log *zap.Logger) error {
	if db.Dialector.Name() == "postgres" && sqlMigrations {
		log.Info("running sql migrations")
		if err := RunSQLMigrations(databaseURL); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}

	for _, table := range CoreTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// RunSQLMigrations applies every pending up migration embedded in the binary.
func RunSQLMigrations(databaseURL string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
