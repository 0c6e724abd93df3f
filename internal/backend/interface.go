package backend

import (
	"context"

	"tracker/internal/core"
)

// Authenticator verifies and registers credentials.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*core.AuthResult, error)
	SignUp(ctx context.Context, email, password string) (*core.AuthResult, error)
}

// Store inserts and selects rows by table name.
type Store interface {
	// Insert writes one record and returns it as stored, including any
	// generated columns.
	Insert(ctx context.Context, table string, record core.Record) (core.Record, error)
	// Select returns the rows of table matching q.
	Select(ctx context.Context, table string, q core.Query) ([]core.Record, error)
}

// Client is the single long-lived handle the HTTP layer talks to.
type Client interface {
	Authenticator
	Store
	// Ping performs a lightweight call used by readiness checks.
	Ping(ctx context.Context) error
	Close() error
}

// BackendResult contains the backend instance. Client.Close releases it.
type BackendResult struct {
	Client Client
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SupabaseBackend BackendType = "supabase"
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SupabaseBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
