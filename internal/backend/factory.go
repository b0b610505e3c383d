package backend

import (
	"context"
	"fmt"

	"rendita/internal/log"
	gsheet "rendita/internal/sheets/google"
	"rendita/internal/storage"
	"rendita/internal/store/memory"
	"rendita/internal/store/mongo"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if config.DataDirectory == "" {
		f.logger.InfoContext(ctx, "Initialized memory backend without seed")
		return &BackendResult{Backend: memory.New()}, nil
	}

	s, err := memory.NewFromDir(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{Backend: s}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := mongo.Connect(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized MongoDB backend", "database", config.MongoDatabase)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	creds := gsheet.Credentials{JSON: config.GoogleServiceAccountJSON, File: config.GoogleServiceAccountFile}
	cli, err := gsheet.New(ctx, creds, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "sheet", config.GoogleSheetName)

	return &BackendResult{Backend: cli}, nil
}
