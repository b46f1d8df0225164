package backend

import (
	"context"

	"expresso/internal/ledger"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the ledger service and its cleanup function.
type BackendResult struct {
	Ledger  *ledger.Service
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Event publishing, skipped when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SeedDir may hold seed_categories.txt with the default category names
	// given to new owners.
	SeedDir string
}

// BackendType represents the type of repository backing the ledger
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
