package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/compliance-cache/internal/retry"
	"github.com/Sternrassler/compliance-cache/internal/testutil"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialBackoff: time.Millisecond, Multiplier: 1}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendMemory {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendMemory)
	}
	if cfg.SweepInterval != DefaultSweepInterval {
		t.Errorf("SweepInterval = %v, want %v", cfg.SweepInterval, DefaultSweepInterval)
	}
}

func TestOpen(t *testing.T) {
	server, _ := testutil.NewMiniRedis(t)

	tests := []struct {
		name     string
		cfg      Config
		wantType string
		wantErr  error
	}{
		{
			name:     "memory backend",
			cfg:      Config{Backend: "memory"},
			wantType: BackendMemory,
		},
		{
			name:     "empty backend defaults to memory",
			cfg:      Config{},
			wantType: BackendMemory,
		},
		{
			name: "redis backend",
			cfg: Config{
				Backend:      "redis",
				Redis:        RedisConfig{Addr: server.Addr()},
				Prefix:       "grc",
				ConnectRetry: fastRetry(),
			},
			wantType: BackendRedis,
		},
		{
			name: "redis backend case insensitive",
			cfg: Config{
				Backend:      "Redis",
				Redis:        RedisConfig{Addr: server.Addr()},
				ConnectRetry: fastRetry(),
			},
			wantType: BackendRedis,
		},
		{
			name: "unreachable redis",
			cfg: Config{
				Backend:      "redis",
				Redis:        RedisConfig{Addr: "127.0.0.1:1"},
				ConnectRetry: fastRetry(),
			},
			wantErr: ErrBackendUnavailable,
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "memcached"},
			wantErr: ErrUnknownBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open[string](context.Background(), tt.cfg, zerolog.Nop())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				if store != nil {
					t.Error("Open() returned a store alongside an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer store.Close()

			switch tt.wantType {
			case BackendMemory:
				if _, ok := store.(*MemoryStore[string]); !ok {
					t.Errorf("Open() = %T, want *MemoryStore", store)
				}
			case BackendRedis:
				if _, ok := store.(*RedisStore[string]); !ok {
					t.Errorf("Open() = %T, want *RedisStore", store)
				}
			}
		})
	}
}

func TestOpen_RedisPrefixApplied(t *testing.T) {
	server, _ := testutil.NewMiniRedis(t)
	ctx := context.Background()

	store, err := Open[int](ctx, Config{
		Backend:      BackendRedis,
		Redis:        RedisConfig{Addr: server.Addr()},
		Prefix:       "tenant1",
		ConnectRetry: fastRetry(),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	store.Set(ctx, "k", 1, NoExpiration)

	if !server.Exists("tenant1:cache:k") {
		t.Errorf("expected key tenant1:cache:k, have %v", server.Keys())
	}
}
