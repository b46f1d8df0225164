package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expresso/internal/backend"
	"expresso/internal/cli"
	"expresso/internal/config"
	"expresso/internal/core"
	apphttp "expresso/internal/http"
	applog "expresso/internal/log"
)

// Development owner registered under CLIENT_ID so the front-end and the CLI
// have someone to talk about.
const (
	devName     = "Desenvolvimento"
	devEmail    = "dev@expresso.dev"
	devPassword = "expresso"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := applog.New(applog.DefaultConfig())

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		bootstrap.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}
	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		bootstrap.Error("Logger setup failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
}

// run serves until a shutdown signal. Failures are logged before returning.
func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.ShutdownContext(context.Background())
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	owner, err := res.Ledger.RegisterOwner(ctx, core.Profile{ID: cfg.ClientID, Name: devName, Email: devEmail}, devPassword)
	if err != nil {
		logger.Error("Failed to register development owner", applog.FieldError, err, applog.FieldOwnerID, cfg.ClientID)
		return err
	}
	logger.Info("Development owner ready", applog.FieldOwnerID, owner.ID)

	srv := apphttp.NewServer(":"+cfg.Port, res.Ledger, apphttp.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimitPerMinute,
		Logger:      logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting expresso server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
