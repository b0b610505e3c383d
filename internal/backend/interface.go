package backend

import (
	"context"

	"rendita/internal/store"
)

// Backend is the repository the portfolio service reads and writes.
type Backend interface {
	store.Repository
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Close runs the cleanup function when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory backend seed directory
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string

	// MongoDB specific
	MongoURI      string
	MongoDatabase string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
