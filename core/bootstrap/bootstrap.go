package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/walletbot/core/config"
	coredatabase "github.com/m3rciful/walletbot/core/database"
	"github.com/m3rciful/walletbot/core/logger"
)

const componentRedis = "redis"

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config     *coreconfig.Config
	InstanceID string

	// Database is nil when the application keeps its state elsewhere.
	Database *coredatabase.Config
	// Redis is nil when no Redis client is needed.
	Redis *redis.Options

	LoggerInit   func(cfg *coreconfig.Config, instanceID string) error
	Connect      func(coredatabase.Config) (*sqlx.DB, error)
	Migrate      func(coredatabase.Config) error
	ConnectRedis func(ctx context.Context, opts *redis.Options) (redis.UniversalClient, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline. Fields for skipped
// steps are nil.
type Result struct {
	DB    *sqlx.DB
	Redis redis.UniversalClient
}

// Close releases every initialized client.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, then the database with its migrations and the Redis client
// when requested. A failing step releases what earlier steps opened.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config, opts.InstanceID); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database != nil {
		db, err := openDatabase(opts)
		if err != nil {
			return nil, err
		}
		res.DB = db
	}

	if opts.Redis != nil {
		connect := opts.ConnectRedis
		if connect == nil {
			connect = ConnectRedis
		}
		client, err := connect(context.Background(), opts.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = client
	}
	return res, nil
}

func openDatabase(opts Options) (*sqlx.DB, error) {
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(*opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(*opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return db, nil
}

// ConnectRedis builds a client and pings it once.
func ConnectRedis(ctx context.Context, opts *redis.Options) (redis.UniversalClient, error) {
	start := time.Now()
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error(ctx, componentRedis, "connect",
			slog.String("status", "fail"),
			slog.String("host", opts.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	logger.Info(ctx, componentRedis, "connect",
		slog.String("status", "ok"),
		slog.String("host", opts.Addr),
		slog.Int("db", opts.DB),
		slog.Duration("took", logger.Took(start)),
	)
	return client, nil
}
