package backend

import (
	"context"
	"fmt"
	"log/slog"

	"runpay/internal/seed/memory"
	"runpay/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	onDB   func(repo *storage.SQLiteRepository)
}

// NewFactory creates a new backend factory. onDB, when non-nil, is called
// with every SQLite repository the factory opens.
func NewFactory(logger *slog.Logger, onDB func(repo *storage.SQLiteRepository)) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, onDB: onDB}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if f.onDB != nil {
		f.onDB(repo)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())

	return &BackendResult{
		Reader:  repo,
		Cleanup: repo.Close,
		Source:  config.SQLiteDBPath,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_source", store.Source())

	return &BackendResult{
		Reader:  store,
		Cleanup: nil, // nothing to release
		Source:  store.Source(),
	}, nil
}
