package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	applog "ledgerbook/internal/log"
	"ledgerbook/internal/storage"
	"ledgerbook/internal/store/memory"
	"ledgerbook/internal/store/mongo"
)

const disconnectTimeout = 5 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With(applog.FieldComponent, applog.ComponentStorage)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	db, err := storage.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", applog.FieldBackend, SQLiteBackend, "path", config.SQLiteDBPath)
	return &BackendResult{
		Ledger:  db.Ledger(),
		Archive: db.Archive(),
		Pinger:  db.Ledger(),
		Cleanup: func() error {
			f.logger.Info("Closing SQLite backend")
			return db.Close()
		},
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	db, err := mongo.Connect(ctx, config.MongoURI, config.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB backend: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend", applog.FieldBackend, MongoBackend, "database", config.MongoDB)
	return &BackendResult{
		Ledger:  db.Ledger(),
		Archive: db.Archive(),
		Pinger:  db.Ledger(),
		Cleanup: func() error {
			f.logger.Info("Disconnecting MongoDB backend")
			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()
			return db.Close(ctx)
		},
	}, nil
}

// createMemoryBackend keeps the ledger and archives in two maps; nothing
// survives a restart.
func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	ledger := memory.New()
	f.logger.Warn("Using in-memory backend, data is not persisted", applog.FieldBackend, MemoryBackend)
	return &BackendResult{
		Ledger:  ledger,
		Archive: memory.New(),
		Pinger:  ledger,
	}, nil
}
