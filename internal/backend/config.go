package backend

import (
	"fmt"
	"time"

	"tracker/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Supabase specific
	SupabaseURL string
	SupabaseKey string

	// SQLite specific
	SQLiteDBPath string

	// SessionTTL bounds sessions issued by the self-hosted backends.
	SessionTTL time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SupabaseURL:  appConfig.SupabaseURL,
		SupabaseKey:  appConfig.SupabaseKey,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SessionTTL:   appConfig.SessionTTL,
	}, nil
}

// Validate validates the backend configuration. Missing Supabase credentials
// are not an error: the process starts and each call fails instead.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SupabaseBackend, MemoryBackend:
	}

	if c.SessionTTL < 0 {
		return fmt.Errorf("session TTL cannot be negative: %v", c.SessionTTL)
	}

	return nil
}
