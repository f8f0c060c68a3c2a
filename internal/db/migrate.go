package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/gedoc/internal/config"
	"github.com/diewo77/gedoc/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Models lists every persisted model, in dependency order.
func Models() []any {
	return []any{
		&models.Permission{},
		&models.Profile{},
		&models.User{},
		&models.Product{},
		&models.Submission{},
		&models.AuditLog{},
	}
}

// Migrate applies the schema. With MIGRATIONS enabled on postgres the
// versioned SQL files are used, otherwise gorm AutoMigrate.
func Migrate(db *gorm.DB, cfg *config.Config) error {
	if cfg.App.Migrations && !cfg.Database.IsSQLite() {
		if err := runSQLMigrations(cfg.Database.URL()); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		return nil
	}
	return AutoMigrate(db)
}

// AutoMigrate creates or updates every table from the models.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
