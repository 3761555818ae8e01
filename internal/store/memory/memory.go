// Package memory implements the session store in process memory for tests and development.
package memory

import (
	"context"
	"math"
	"sync"

	"github.com/m3rciful/walletbot/internal/account"
	"github.com/m3rciful/walletbot/internal/store"
)

// Store keeps accounts and the pending restart notice in maps guarded by a mutex.
// Returned accounts are copies; mutations only happen through the store methods.
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*account.Account

	notice    int64
	hasNotice bool
}

var _ store.Store = (*Store)(nil)

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{accounts: make(map[int64]*account.Account)}
}

// Put stores acc as-is, including legacy markers. Used to seed fixtures.
func (s *Store) Put(acc *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.UserID] = acc.Clone()
}

// Get returns a copy of the user's account.
func (s *Store) Get(_ context.Context, userID int64) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// CreateDefault inserts the default account unless one exists.
func (s *Store) CreateDefault(_ context.Context, userID int64) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		acc = account.New(userID)
		s.accounts[userID] = acc
	}
	return acc.Clone(), nil
}

// Update applies the patch under the write lock.
func (s *Store) Update(_ context.Context, userID int64, patch account.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return account.ErrAccountNotFound
	}
	if patch.BalanceDelta > 0 && acc.Balance > math.MaxInt64-patch.BalanceDelta {
		return account.ErrBalanceOverflow
	}
	if acc.Balance+patch.BalanceDelta < 0 {
		return account.ErrInsufficientFunds
	}
	acc.Apply(patch)
	if patch.DepositMethods != nil {
		acc.Legacy.DepositMethods = false
	}
	if patch.WithdrawalMethods != nil {
		acc.Legacy.WithdrawalMethods = false
	}
	if patch.State != nil {
		acc.Legacy.State = false
	}
	if patch.Scratch != nil {
		acc.Legacy.Scratch = false
	}
	return nil
}

// AppendMethod appends method to the named list.
func (s *Store) AppendMethod(ctx context.Context, userID int64, list account.MethodList, method account.PaymentMethod) error {
	return s.Update(ctx, userID, account.Patch{Append: &account.MethodAppend{List: list, Method: method}})
}

// SavePendingNotice records the restart recipient, replacing any previous one.
func (s *Store) SavePendingNotice(_ context.Context, recipient int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice, s.hasNotice = recipient, true
	return nil
}

// LoadPendingNotice returns the pending recipient if any.
func (s *Store) LoadPendingNotice(_ context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notice, s.hasNotice, nil
}

// DeletePendingNotice clears the pending notice.
func (s *Store) DeletePendingNotice(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice, s.hasNotice = 0, false
	return nil
}
