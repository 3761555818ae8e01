// Package ledger implements balance mutations on top of the session store. Each mutation is
// committed in the same store call as the state transition that follows it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/account"
	"github.com/m3rciful/walletbot/internal/store"
)

const component = "service.ledger"

// Ledger credits and debits account balances.
type Ledger struct {
	store store.Store
}

// New constructs a Ledger over st.
func New(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// ParseAmount accepts a string of ASCII digits denoting a strictly positive integer.
// Signs, decimals, spaces inside the number and overflowing values are rejected.
func ParseAmount(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, account.ErrInvalidAmount
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, account.ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || v <= 0 {
		return 0, account.ErrInvalidAmount
	}
	return v, nil
}

// CheckSufficient reports account.ErrInsufficientFunds when amount exceeds balance.
func CheckSufficient(balance, amount int64) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	if amount > balance {
		return account.ErrInsufficientFunds
	}
	return nil
}

// CheckCredit reports account.ErrBalanceOverflow when amount cannot be added to balance.
func CheckCredit(balance, amount int64) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	if balance > math.MaxInt64-amount {
		return account.ErrBalanceOverflow
	}
	return nil
}

// Credit adds amount to the balance and applies commit in the same store call. A credit the
// balance cannot hold is rejected by the store with account.ErrBalanceOverflow.
func (l *Ledger) Credit(ctx context.Context, userID, amount int64, commit account.Patch) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	commit.BalanceDelta = amount
	if err := l.store.Update(ctx, userID, commit); err != nil {
		l.logFailure(ctx, "ledger.credit", userID, amount, err)
		return fmt.Errorf("ledger: credit: %w", err)
	}
	logger.Info(ctx, component, "ledger.credit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
	)
	return nil
}

// Debit subtracts amount and applies commit in the same store call. When the balance is
// short the store rejects the whole patch and account.ErrInsufficientFunds is returned.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64, commit account.Patch) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	commit.BalanceDelta = -amount
	if err := l.store.Update(ctx, userID, commit); err != nil {
		l.logFailure(ctx, "ledger.debit", userID, amount, err)
		return fmt.Errorf("ledger: debit: %w", err)
	}
	logger.Info(ctx, component, "ledger.debit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
	)
	return nil
}

func (l *Ledger) logFailure(ctx context.Context, event string, userID, amount int64, err error) {
	status := "fail"
	if errors.Is(err, account.ErrInsufficientFunds) || errors.Is(err, account.ErrInvalidAmount) {
		status = "skip"
	}
	logger.Warn(ctx, component, event,
		slog.String("status", status),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
		slog.String("err", err.Error()),
	)
}
