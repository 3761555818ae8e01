package account

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidAmount     = errors.New("amount must be a whole number greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownSelection  = errors.New("unknown selection")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnsupportedCrypto = errors.New("unsupported cryptocurrency")
	ErrEmptyDetail       = errors.New("payment method detail is empty")

	// ErrBalanceOverflow matches ErrInvalidAmount: the amount is too large for the balance.
	ErrBalanceOverflow = fmt.Errorf("%w: balance would overflow", ErrInvalidAmount)
)
