package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/walletbot/core/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
  admin_id: 42
database:
  host: localhost
  name: wallet
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, LockLocal, cfg.Lock.Backend)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.True(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesRedis())
}

func TestLoadMemoryStoreSkipsDatabase(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
store:
  backend: Memory
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.False(t, cfg.UsesPostgres())
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "postgres needs host",
			cfg:     Config{},
			wantErr: "database.host is required",
		},
		{
			name:    "unknown store",
			cfg:     Config{Store: StoreConfig{Backend: "sqlite"}},
			wantErr: "invalid store.backend",
		},
		{
			name:    "redis lock needs addr",
			cfg:     Config{Store: StoreConfig{Backend: StoreMemory}, Lock: LockConfig{Backend: "redis"}},
			wantErr: "redis.addr is required",
		},
		{
			name:    "unknown lock",
			cfg:     Config{Store: StoreConfig{Backend: StoreMemory}, Lock: LockConfig{Backend: "etcd"}},
			wantErr: "invalid lock.backend",
		},
		{
			name:    "negative lock tries",
			cfg:     Config{Store: StoreConfig{Backend: StoreMemory}, Lock: LockConfig{Tries: -1}},
			wantErr: "lock settings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Telegram.Token = "t"
			err := cfg.Normalize()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisLockSettings(t *testing.T) {
	cfg := Config{
		Store: StoreConfig{Backend: StoreMemory},
		Redis: RedisConfig{Addr: "127.0.0.1:6379", DB: 2},
		Lock:  LockConfig{Backend: " REDIS ", ExpiryMS: 5000, Tries: 4, RetryDelayMS: 50},
	}
	cfg.Telegram.Token = "t"
	require.NoError(t, cfg.Normalize())

	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, int64(5000), cfg.Lock.Expiry().Milliseconds())
	assert.Equal(t, int64(50), cfg.Lock.RetryDelay().Milliseconds())
	opts := cfg.Redis.Options()
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
store:
  backend: memory
`)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, LockRedis, cfg.Lock.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}
