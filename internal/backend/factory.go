package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tracker/internal/backend/memory"
	"tracker/internal/backend/supabase"
	"tracker/internal/storage"
)

var (
	_ Client = (*supabase.Client)(nil)
	_ Client = (*memory.Store)(nil)
	_ Client = (*storage.SQLiteRepository)(nil)
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SupabaseBackend:
		return f.createSupabaseBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSupabaseBackend(config Config) (*BackendResult, error) {
	client, err := supabase.NewClient(config.SupabaseURL, config.SupabaseKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
	}
	if !client.Configured() {
		f.logger.Warn("Supabase credentials not found, backend calls will fail until SUPABASE_URL and SUPABASE_KEY are set")
	} else {
		f.logger.Info("Initialized Supabase backend", "url", config.SupabaseURL)
	}

	return &BackendResult{
		Client: client,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, config.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"session_ttl", config.SessionTTL)

	return &BackendResult{
		Client: repo,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewStore(config.SessionTTL)

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Client: store,
	}, nil
}
