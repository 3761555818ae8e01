// Package restart persists the "notify after restart" marker and fires it once the next
// process has finished starting.
package restart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/walletbot/core/logger"
)

const component = "service.restart"

// CompletedText is delivered to the recipient of a pending notice.
const CompletedText = "Restart has been completed. \nTo continue where you left off, please use the command: /start"

// ErrNilDeliver is returned when ConsumePendingNotice has nothing to deliver with.
var ErrNilDeliver = errors.New("restart: nil deliver func")

// NoticeStore keeps at most one pending notice.
type NoticeStore interface {
	SavePendingNotice(ctx context.Context, recipient int64) error
	LoadPendingNotice(ctx context.Context) (recipient int64, ok bool, err error)
	DeletePendingNotice(ctx context.Context) error
}

// DeliverFunc sends the completion notice to recipient.
type DeliverFunc func(ctx context.Context, recipient int64) error

// Coordinator records restart requests and consumes them after start-up.
type Coordinator struct {
	store NoticeStore
}

// NewCoordinator wires the coordinator over store.
func NewCoordinator(store NoticeStore) *Coordinator {
	return &Coordinator{store: store}
}

// RequestRestart durably records that recipient must be notified after the restart.
// A newer request replaces an older pending one.
func (c *Coordinator) RequestRestart(ctx context.Context, recipient int64) error {
	if err := c.store.SavePendingNotice(ctx, recipient); err != nil {
		return fmt.Errorf("restart: save notice: %w", err)
	}
	logger.Info(ctx, component, "restart.requested",
		slog.String("status", "ok"),
		slog.Int64("recipient", recipient),
	)
	return nil
}

// ConsumePendingNotice delivers the pending notice, if any, and deletes it afterwards.
// When delivery fails the record is kept so the next start retries it.
func (c *Coordinator) ConsumePendingNotice(ctx context.Context, deliver DeliverFunc) (int64, bool, error) {
	if deliver == nil {
		return 0, false, ErrNilDeliver
	}
	recipient, ok, err := c.store.LoadPendingNotice(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("restart: load notice: %w", err)
	}
	if !ok {
		logger.Debug(ctx, component, "restart.notice", slog.String("status", "skip"))
		return 0, false, nil
	}

	if err := deliver(ctx, recipient); err != nil {
		logger.Warn(ctx, component, "restart.notice",
			slog.String("status", "fail"),
			slog.Int64("recipient", recipient),
			slog.String("err", err.Error()),
		)
		return recipient, false, fmt.Errorf("restart: deliver notice: %w", err)
	}
	if err := c.store.DeletePendingNotice(ctx); err != nil {
		// Delivered but still stored: the next start sends a duplicate.
		return recipient, true, fmt.Errorf("restart: delete notice: %w", err)
	}

	logger.Info(ctx, component, "restart.notice",
		slog.String("status", "ok"),
		slog.Int64("recipient", recipient),
	)
	return recipient, true, nil
}
