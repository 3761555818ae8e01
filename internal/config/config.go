// Package config holds the wallet bot configuration: the shared core settings plus the
// storage, Redis and locking choices of this application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/walletbot/core/config"
	coredatabase "github.com/m3rciful/walletbot/core/database"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// StoreConfig selects where accounts live.
type StoreConfig struct {
	Backend string `yaml:"backend" envconfig:"STORE_BACKEND"`
}

// RedisConfig points at the Redis used for distributed locks.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Options converts the settings into go-redis client options.
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB}
}

// LockConfig controls per-user serialisation. The redis backend is required when several
// bot instances share one store.
type LockConfig struct {
	Backend      string `yaml:"backend" envconfig:"LOCK_BACKEND"`
	ExpiryMS     int    `yaml:"expiry_ms" envconfig:"LOCK_EXPIRY_MS"`
	Tries        int    `yaml:"tries" envconfig:"LOCK_TRIES"`
	RetryDelayMS int    `yaml:"retry_delay_ms" envconfig:"LOCK_RETRY_DELAY_MS"`
}

// Expiry returns the lease duration; zero keeps the lock package default.
func (l LockConfig) Expiry() time.Duration { return time.Duration(l.ExpiryMS) * time.Millisecond }

// RetryDelay returns the pause between acquisition attempts.
func (l LockConfig) RetryDelay() time.Duration {
	return time.Duration(l.RetryDelayMS) * time.Millisecond
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Store    StoreConfig         `yaml:"store"`
	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Lock     LockConfig          `yaml:"lock"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// UsesPostgres reports whether accounts are kept in PostgreSQL.
func (c *Config) UsesPostgres() bool { return c.Store.Backend == StorePostgres }

// UsesRedis reports whether a Redis client must be opened.
func (c *Config) UsesRedis() bool { return c.Lock.Backend == LockRedis }

// Load reads the YAML file at path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults and validates every section in use.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "":
		c.Store.Backend = StorePostgres
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("invalid store.backend: %q", c.Store.Backend)
	}
	if c.UsesPostgres() {
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	}

	c.Lock.Backend = strings.ToLower(strings.TrimSpace(c.Lock.Backend))
	switch c.Lock.Backend {
	case "":
		c.Lock.Backend = LockLocal
	case LockLocal:
	case LockRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when lock.backend is %q", LockRedis)
		}
	default:
		return fmt.Errorf("invalid lock.backend: %q", c.Lock.Backend)
	}
	if c.Lock.ExpiryMS < 0 || c.Lock.Tries < 0 || c.Lock.RetryDelayMS < 0 {
		return fmt.Errorf("lock settings must be >= 0")
	}
	return nil
}
