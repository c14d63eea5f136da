// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/dompet, cmd/dompet-worker, and cmd/recurring-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dompet/internal/config"
	"dompet/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger for the given LOG_LEVEL value and
// installs it as the default.
func SetupLogger(level string, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:  log.ParseLevel(level),
		Output: out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates the configuration, then sets up logging
// at the configured level.
func LoadConfig() (*config.Config, *log.Logger, error) {
	LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		return nil, SetupLogger("info", os.Stdout), err
	}
	logger := SetupLogger(cfg.LogLevel, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, err
	}
	return cfg, logger, nil
}

// MustLoadConfig is LoadConfig that exits the process on failure.
func MustLoadConfig() (*config.Config, *log.Logger) {
	cfg, logger, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
