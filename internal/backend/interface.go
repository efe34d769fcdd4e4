package backend

import (
	"context"

	"runpay/internal/seed"
)

// CleanupFunc releases whatever the backend opened.
type CleanupFunc func() error

// BackendResult contains the seed reader and optional cleanup function
type BackendResult struct {
	Reader  seed.Reader
	Cleanup CleanupFunc
	// Source describes where the seed comes from, for logs.
	Source string
}

// Factory creates seed backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// Memory backend: YAML seed file, built-in seed when missing
	SeedFile string

	// SQLite backend
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
