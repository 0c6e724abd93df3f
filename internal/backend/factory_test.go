package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"tracker/internal/config"
	"tracker/internal/core"
)

func TestCreateBackend(t *testing.T) {
	factory := NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, SessionTTL: time.Hour}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "t.db"), SessionTTL: time.Hour}, false},
		{"supabase without credentials", Config{Type: SupabaseBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
		{"negative ttl", Config{Type: MemoryBackend, SessionTTL: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := factory.CreateBackend(ctx, tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer result.Client.Close()
			if result.Client == nil {
				t.Fatal("nil client")
			}
		})
	}
}

func TestUnconfiguredSupabaseFailsPerCall(t *testing.T) {
	factory := NewFactory(nil)
	result, err := factory.CreateBackend(context.Background(), Config{Type: SupabaseBackend})
	if err != nil {
		t.Fatal(err)
	}
	_, err = result.Client.Select(context.Background(), core.TableTransactions, core.Query{})
	var be *core.BackendError
	if !errors.As(err, &be) || !errors.Is(err, core.ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SessionTTL: time.Hour}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "x.db" || got.SessionTTL != time.Hour {
		t.Errorf("got %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestBackendTypes(t *testing.T) {
	if BackendType("memory").String() != "memory" || !MemoryBackend.IsValid() || BackendType("x").IsValid() {
		t.Error("unexpected BackendType behaviour")
	}
}
