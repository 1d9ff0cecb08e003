// Package database owns the SQLite connection and schema migration.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shopalytics/internal/catalog"
	"shopalytics/internal/config"
	"shopalytics/internal/pipeline"
	"shopalytics/internal/reports"
	"shopalytics/internal/sales"
	"shopalytics/internal/traffic"
)

// DBManager wraps the gorm connection with shopalytics-specific migration methods.
type DBManager struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

// NewDBManager creates a new database manager for the configured SQLite file.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	return &DBManager{
		cfg:    cfg,
		logger: logger,
	}
}

// Init opens the database connection, applying the WAL journal, immediate
// transactions and the busy timeout through the DSN.
func (dm *DBManager) Init() error {
	path := dm.cfg.GetDatabasePath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("database: failed to create storage directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)

	logLevel := gormlogger.Error
	if dm.cfg.IsTest() {
		logLevel = gormlogger.Silent
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("database: failed to open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(dm.cfg.GetMaxOpenConns())
	sqlDB.SetMaxIdleConns(dm.cfg.GetMaxIdleConns())

	dm.db = db
	return nil
}

// GetConnection returns the underlying gorm connection.
func (dm *DBManager) GetConnection() *gorm.DB {
	return dm.db
}

// CheckpointWAL forces a WAL checkpoint with the given mode (PASSIVE, FULL,
// RESTART or TRUNCATE).
func (dm *DBManager) CheckpointWAL(mode string) error {
	if dm.db == nil {
		return gorm.ErrInvalidDB
	}
	return dm.db.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)).Error
}

// Close closes the underlying connection pool.
func (dm *DBManager) Close() error {
	if dm.db == nil {
		return nil
	}
	sqlDB, err := dm.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MigrateDatabase runs shopalytics-specific migrations.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	models := []any{
		&catalog.Product{},
		&traffic.Session{},
		&traffic.Pageview{},
		&sales.Order{},
		&sales.OrderItem{},
		&sales.Refund{},
		&pipeline.Run{},
	}
	models = append(models, reports.Models()...)

	// Run migrations in a transaction
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(models...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}
