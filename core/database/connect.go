package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/walletbot/core/logger"
)

const componentDB = "db"

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return open(ctx, cfg.DSN(), cfg.MaxConnections,
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	)
}

// ConnectDSN opens an explicit DSN, e.g. one handed out by a test container.
func ConnectDSN(ctx context.Context, dsn string, maxConns int) (*sqlx.DB, error) {
	return open(ctx, dsn, maxConns)
}

func open(ctx context.Context, dsn string, maxConns int, target ...slog.Attr) (*sqlx.DB, error) {
	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		attrs := append([]slog.Attr{
			slog.String("status", "fail"),
			slog.String("driver", "postgres"),
		}, target...)
		attrs = append(attrs,
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		logger.Error(ctx, componentDB, "db.connect", attrs...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	logger.Debug(ctx, componentDB, "db.pool", slog.Int("pool_open", maxConns))

	attrs := append([]slog.Attr{
		slog.String("status", "ok"),
		slog.String("driver", "postgres"),
	}, target...)
	attrs = append(attrs,
		slog.Int("pool_open", maxConns),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	logger.Info(ctx, componentDB, "db.connect", attrs...)
	return db, nil
}

// WaitForPostgres pings dsn until it answers or timeout elapses.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var lastErr error
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			err = db.PingContext(ctx)
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		case <-ticker.C:
		}
	}
}
