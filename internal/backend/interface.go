package backend

import (
	"context"

	"dompet/internal/amqp"
	"dompet/internal/services"
	"dompet/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the ledger store and the optional sync publisher.
type Result struct {
	Store storage.LedgerStore
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the sync publisher, or an untyped nil when AMQP is
// disabled so that services can compare it against nil.
func (r *Result) Publisher() services.EventPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a ledger store based on the provided config
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional sync queue
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// AMQPRequired turns a failed broker connection into an error instead
	// of a warning. Workers set it, the API does not.
	AMQPRequired bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
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
