// Package cli provides common initialization shared by cmd/expresso and
// cmd/expresso-server.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"expresso/internal/config"
	applog "expresso/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the server logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	handler, err := applog.NewHandler(cfg.LogFormat, level, w)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentApp, Handler: handler})
	applog.SetDefault(logger)
	return logger, nil
}

// SetupCLILogger renders records through charmbracelet/log for a terminal.
// Unknown levels fall back to warn so command output stays readable.
func SetupCLILogger(level string, w io.Writer) *applog.Logger {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.WarnLevel
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "expresso",
		Level:           lvl,
	})
	logger := applog.New(applog.Config{Component: applog.ComponentCLI, Handler: handler})
	applog.SetDefault(logger)
	return logger
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
