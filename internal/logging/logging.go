// Package logging builds the application logger: slog text output to
// stdout and to a size-rotated file under the configured logs directory.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"shopalytics/internal/config"
)

// NewLogger returns a logger writing to stdout and a rotated log file.
// The file sink is skipped in the test environment so tests do not
// litter the working directory with logs.
func NewLogger(cfg *config.Config) *slog.Logger {
	var writer io.Writer = os.Stdout
	if !cfg.IsTest() {
		writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
			MaxSize:    cfg.LogsMaxSizeInMb,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeInDays,
			Compress:   true,
		})
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})
	return slog.New(handler)
}

func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
