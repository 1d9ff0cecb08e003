// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DataDirectory string `mapstructure:"datadir"`
	DatabasePath  string `mapstructure:"storagepath"`
	DatabaseName  string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Run serialization settings
	RunStaleAfterMinutes int `mapstructure:"runstaleafterminutes"`

	// Seeder settings
	SeedSessions int `mapstructure:"seedsessions"`
	SeedMonths   int `mapstructure:"seedmonths"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "shopalytics")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("datadir", "data")
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("runstaleafterminutes", 60)
		v.SetDefault("seedsessions", 2000)
		v.SetDefault("seedmonths", 12)

		// Bind environment variables
		v.BindEnv("appname", "SHOPALYTICS_APP_NAME")
		v.BindEnv("environment", "SHOPALYTICS_ENV")
		v.BindEnv("loglevel", "SHOPALYTICS_LOG_LEVEL")
		v.BindEnv("datadir", "SHOPALYTICS_DATA_DIR")
		v.BindEnv("storagepath", "SHOPALYTICS_STORAGE_PATH")
		v.BindEnv("logsdir", "SHOPALYTICS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SHOPALYTICS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "SHOPALYTICS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SHOPALYTICS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "SHOPALYTICS_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "SHOPALYTICS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "SHOPALYTICS_DB_MAX_IDLE_CONNS")
		v.BindEnv("runstaleafterminutes", "SHOPALYTICS_RUN_STALE_AFTER_MINUTES")
		v.BindEnv("seedsessions", "SHOPALYTICS_SEED_SESSIONS")
		v.BindEnv("seedmonths", "SHOPALYTICS_SEED_MONTHS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.RunStaleAfterMinutes <= 0 {
		return fmt.Errorf("runstaleafterminutes must be positive: %d", c.RunStaleAfterMinutes)
	}
	if c.SeedSessions <= 0 {
		return fmt.Errorf("seedsessions must be positive: %d", c.SeedSessions)
	}
	if c.SeedMonths <= 0 {
		return fmt.Errorf("seedmonths must be positive: %d", c.SeedMonths)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for in-memory database stability)
// - Development/Production: 10 (allows mart reads concurrent with a run)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1 // Required for in-memory database stability
	}

	return 10 // Higher concurrency for development and production
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (matches MaxOpenConns for test stability)
// - Development/Production: 5 (keep half the connections warm for reuse)
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1 // Matches MaxOpenConns for test stability
	}

	return 5 // Keep half the pool warm for development and production
}

// GetLogLevel returns the log level as a string.
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// RunStaleAfter returns how long a pipeline run may stay in the running
// state before a new run is allowed to take it over as crashed.
func (c *Config) RunStaleAfter() time.Duration {
	return time.Duration(c.RunStaleAfterMinutes) * time.Minute
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
