// Package store defines the session store contract: one durable record per user holding
// balance, payment methods, conversation state and scratch data.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/walletbot/internal/account"
)

// Store persists accounts. Every call is atomic on its own; Update applies the whole patch
// in one operation so ledger mutations and state transitions commit together.
type Store interface {
	// Get returns account.ErrAccountNotFound when the user has no record.
	Get(ctx context.Context, userID int64) (*account.Account, error)
	// CreateDefault inserts the default record, returning the existing one if present.
	CreateDefault(ctx context.Context, userID int64) (*account.Account, error)
	// Update applies a partial patch. It fails with account.ErrInsufficientFunds, leaving the
	// record untouched, when the balance delta would make the balance negative.
	Update(ctx context.Context, userID int64, patch account.Patch) error
	// AppendMethod appends to one of the ordered method lists.
	AppendMethod(ctx context.Context, userID int64, list account.MethodList, method account.PaymentMethod) error
}

// UnavailableError wraps a persistence failure. It matches account.ErrStoreUnavailable.
type UnavailableError struct {
	Op  string
	Err error
}

// Unavailable wraps err for op; nil stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Op: op, Err: err}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, account.ErrStoreUnavailable) match.
func (e *UnavailableError) Is(target error) bool {
	return target == account.ErrStoreUnavailable
}

// Code satisfies the handler summary error-code lookup.
func (e *UnavailableError) Code() string { return "store_unavailable" }

// IsUnavailable reports whether err comes from a failing store.
func IsUnavailable(err error) bool {
	return errors.Is(err, account.ErrStoreUnavailable)
}
