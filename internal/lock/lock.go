// Package lock serialises work per user identity. Telebot dispatches updates concurrently, so
// every conversation event runs inside WithLock keyed by the user.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrNilFunc is returned when WithLock receives no function.
var ErrNilFunc = errors.New("lock: nil function")

// Locker runs fn while holding the lock for key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// UserKey returns the lock key for a user identity.
func UserKey(userID int64) string {
	return "walletbot:user:" + strconv.FormatInt(userID, 10)
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped once no goroutine holds or waits
// for them, so the map only grows with concurrently active users.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

var _ Locker = (*Local)(nil)

// NewLocal constructs an empty keyed mutex.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

// WithLock blocks until key is free or ctx is done.
func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	e := l.acquire(key)
	defer l.release(key, e)

	locked := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-ctx.Done():
		// Hand the mutex back once the pending Lock succeeds.
		go func() {
			<-locked
			e.mu.Unlock()
		}()
		return fmt.Errorf("lock: acquire %s: %w", key, ctx.Err())
	}
	defer e.mu.Unlock()
	return fn(ctx)
}

// Len reports the number of tracked keys.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
