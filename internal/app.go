// Package internal contains core application functionality
package internal

import (
	"fmt"

	"log/slog"

	"shopalytics/internal/config"
	"shopalytics/internal/database"
	"shopalytics/internal/logging"
	"shopalytics/internal/pipeline"
)

// Application wires the configured components together: logger, database
// manager and the batch pipeline.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.DBManager
	Pipeline  *pipeline.Pipeline
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		Pipeline:  pipeline.New(dbManager.GetConnection(), cfg, logger),
	}, nil
}

// Close releases the application's database resources.
func (a *Application) Close() error {
	return a.DBManager.Close()
}
