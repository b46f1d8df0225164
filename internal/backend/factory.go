package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"expresso/internal/amqp"
	"expresso/internal/ledger"
	"expresso/internal/ledger/memstore"
	applog "expresso/internal/log"
	"expresso/internal/storage"
)

// SeedFileName is looked up inside Config.SeedDir.
const SeedFileName = "seed_categories.txt"

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend builds the repository named by config.Type and a ledger over
// it. A broker that cannot be reached is logged and the ledger runs without
// events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo ledger.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		repo = memstore.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	opts := []ledger.Option{ledger.WithLogger(f.logger)}
	if config.SeedDir != "" {
		if names := ledger.ReadSeedFile(filepath.Join(config.SeedDir, SeedFileName)); len(names) > 0 {
			opts = append(opts, ledger.WithDefaultCategories(names))
			f.logger.InfoContext(ctx, "Loaded seed categories", "count", len(names))
		}
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, ledger.WithEvents(amqpClient))
		}
	}

	svc := ledger.NewService(repo, opts...)
	cleanup := func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, svc.Close())
		return errors.Join(errs...)
	}
	return &BackendResult{Ledger: svc, Cleanup: cleanup}, nil
}
