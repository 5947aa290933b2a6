package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the store, the optional list cache and the optional
// AMQP publisher, and wires them into an ExpenseService.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(ctx, config)
	if err != nil {
		return nil, err
	}
	cleanups := []CleanupFunc{repo.Close}

	var lists cache.Cache[[]core.Expense]
	if config.CacheTTL > 0 {
		lru := cache.NewLRUCache[[]core.Expense](config.CacheSize, config.CacheTTL)
		manager := cache.NewManager(func(removed int) {
			f.logger.Debug("Expense list cache cleanup", applog.FieldCount, removed)
		})
		manager.Register(lru)
		manager.StartCleanup(config.CacheTTL)
		lists = lru
		cleanups = append(cleanups, func() error { manager.Stop(); return nil })
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change notifications",
				applog.FieldError, err)
		} else {
			publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP publisher",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(repo, lists, publisher, f.logger)

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"cache_ttl", config.CacheTTL.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Service:     svc,
		Repository:  repo,
		AMQPEnabled: publisher != nil,
		Cleanup:     runAll(cleanups),
	}, nil
}

func (f *DefaultFactory) openRepository(ctx context.Context, config Config) (storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Opened Postgres store")
		return repo, nil

	case MemoryBackend:
		dir := config.DataDirectory
		if dir == "" {
			dir = "data"
		}
		f.logger.Info("Opened memory store", "data_directory", dir)
		return memory.NewFromFiles(dir), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// runAll closes resources in reverse order of acquisition.
func runAll(fns []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
