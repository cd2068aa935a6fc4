package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"golang-stock-suggester/pkg/postgres"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds the settings for an embedded SQLite database.
type Config struct {
	Path     string
	LogLevel string
}

// NewDB opens (creating if needed) the SQLite file at cfg.Path. ":memory:" is accepted.
func NewDB(cfg Config) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "data/suggester.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		path += "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(postgres.ParseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
