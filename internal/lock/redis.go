package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/walletbot/core/logger"
)

const component = "lock"

var (
	// ErrNilClient is returned when NewRedis receives no client.
	ErrNilClient = errors.New("lock: nil redis client")
	// ErrEmptyKey is returned for blank lock keys.
	ErrEmptyKey = errors.New("lock: empty key")
)

// RedisOptions tunes the distributed mutex.
type RedisOptions struct {
	// Expiry bounds how long a crashed holder can block a user.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultRedisOptions suits conversation handlers that finish within a few store round trips.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Redis serialises users across bot instances using the redsync algorithm.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

var _ Locker = (*Redis)(nil)

// NewRedis builds a distributed locker over client. Zero option fields take defaults.
func NewRedis(client redis.UniversalClient, opts RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	def := DefaultRedisOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	return &Redis{rs: redsync.New(goredis.NewPool(client)), opts: opts}, nil
}

// WithLock acquires the distributed mutex for key, runs fn and releases the mutex.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	mutex := r.rs.NewMutex(key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)
	start := time.Now()
	if err := mutex.LockContext(ctx); err != nil {
		logger.Warn(ctx, component, "lock.acquire",
			slog.String("status", "fail"),
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	logger.Debug(ctx, component, "lock.acquire",
		slog.String("status", "ok"),
		slog.String("key", key),
		slog.Duration("wait", logger.RoundMS(time.Since(start))),
	)

	defer func() {
		// Release even if ctx was cancelled while fn ran.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			attrs := []slog.Attr{
				slog.String("status", "fail"),
				slog.String("key", key),
				slog.Bool("unlock_ok", ok),
			}
			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
			}
			logger.Warn(ctx, component, "lock.release", attrs...)
		}
	}()

	return fn(ctx)
}
