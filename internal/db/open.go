// Package db opens the database, applies the schema and seeds reference data.
package db

import (
	"fmt"
	"log"
	"time"

	"github.com/diewo77/gedoc/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 10

// Open connects with the configured driver. Postgres is retried to let the
// container start; sqlite fails fast.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	if cfg.IsSQLite() {
		db, err := gorm.Open(sqlite.Open(cfg.Path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		log.Printf("[DB] sqlite %s", cfg.Path)
		return db, nil
	}

	var db *gorm.DB
	var err error
	for i := 1; i <= connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err == nil {
			err = db.Exec("SELECT 1").Error
		}
		if err == nil {
			break
		}
		log.Printf("[DB] attempt %d/%d failed: %v", i, connectAttempts, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres after %d attempts: %w", connectAttempts, err)
	}
	log.Printf("[DB] postgres %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.DBName)
	return db, nil
}

// Ping runs a trivial query; used by /healthz.
func Ping(db *gorm.DB) error {
	return db.Exec("SELECT 1").Error
}
