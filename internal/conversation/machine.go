// Package conversation implements the resumable wallet conversation: a closed set of states,
// one handler per state and event shape, and Render, the pure projection from a persisted
// account to the prompt the user should see.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/account"
	"github.com/m3rciful/walletbot/internal/ledger"
	"github.com/m3rciful/walletbot/internal/lock"
	"github.com/m3rciful/walletbot/internal/store"
)

const component = "service.wallet"

// EventKind is the shape of an inbound event.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventText
	EventSelect
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventText:
		return "text"
	case EventSelect:
		return "select"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one inbound interaction. Payload is the text or the option token.
type Event struct {
	Kind    EventKind
	UserID  int64
	Payload string
}

// Machine drives accounts through the conversation. Events for one user are serialised by
// the locker; the store is the only place state lives between events.
type Machine struct {
	store  store.Store
	ledger *ledger.Ledger
	locker lock.Locker
}

// New wires a machine. A nil ledger is built over st and a nil locker defaults to an
// in-process one.
func New(st store.Store, l *ledger.Ledger, locker lock.Locker) *Machine {
	if l == nil {
		l = ledger.New(st)
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Machine{store: st, ledger: l, locker: locker}
}

// Start handles a session start: the main menu, or the interrupted flow's prompt.
func (m *Machine) Start(ctx context.Context, userID int64) (Reply, error) {
	return m.Handle(ctx, Event{Kind: EventStart, UserID: userID})
}

// Text handles a free-text message.
func (m *Machine) Text(ctx context.Context, userID int64, text string) (Reply, error) {
	return m.Handle(ctx, Event{Kind: EventText, UserID: userID, Payload: text})
}

// Select handles a menu selection.
func (m *Machine) Select(ctx context.Context, userID int64, token string) (Reply, error) {
	return m.Handle(ctx, Event{Kind: EventSelect, UserID: userID, Payload: token})
}

// Handle processes ev under the user's lock. Errors returned here are store failures
// (matching account.ErrStoreUnavailable) or broken wiring; user mistakes become re-prompts.
func (m *Machine) Handle(ctx context.Context, ev Event) (Reply, error) {
	start := time.Now()
	var reply Reply
	var from account.State

	err := m.locker.WithLock(ctx, lock.UserKey(ev.UserID), func(ctx context.Context) error {
		acc, err := m.load(ctx, ev.UserID)
		if err != nil {
			return err
		}
		from = acc.State
		h, ok := dispatch[acc.State]
		if !ok {
			return fmt.Errorf("conversation: unknown state %q", acc.State)
		}

		var notices []string
		switch ev.Kind {
		case EventStart:
			if acc.State != account.StateMainMenu {
				notices = []string{resumeNotice}
			}
		case EventText:
			notices, err = m.text(ctx, h, acc, ev.Payload)
		case EventSelect:
			notices, err = h.selection(ctx, m, acc, ev.Payload)
		default:
			return fmt.Errorf("conversation: unknown event kind %s", ev.Kind)
		}

		if errors.Is(err, account.ErrUnknownSelection) {
			logger.Debug(ctx, component, "conversation.selection",
				slog.String("status", "skip"),
				slog.String("state", string(acc.State)),
				slog.String("token", logger.SanitizeLimit(ev.Payload, 64)),
			)
			err = nil
		}
		if errors.Is(err, ErrIncompleteFlow) {
			notices, err = m.abandon(ctx, acc)
		}
		if err != nil {
			return err
		}

		reply, err = m.reply(ctx, acc, notices)
		return err
	})
	if err != nil {
		logger.Warn(ctx, component, "conversation.step",
			slog.String("status", "fail"),
			slog.Int64("user_id", ev.UserID),
			slog.String("input", ev.Kind.String()),
			slog.String("err", err.Error()),
		)
		return Reply{}, err
	}

	logger.Info(ctx, component, "conversation.step",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
		slog.String("input", ev.Kind.String()),
		slog.String("state_from", string(from)),
		slog.String("state_to", string(reply.State)),
		slog.Duration("took", logger.Took(start)),
	)
	return reply, nil
}

// text applies the universal typed cancel before the state's own text handler.
func (m *Machine) text(ctx context.Context, h stateHandlers, acc *account.Account, text string) ([]string, error) {
	if !isInputState(acc.State) && NormalizeInput(text) == SentinelCancel {
		return []string{operationCancel}, m.commit(ctx, acc, account.Reset())
	}
	return h.text(ctx, m, acc, text)
}

// load returns the user's account, creating it on first contact and back-filling records
// written before the conversation fields existed.
func (m *Machine) load(ctx context.Context, userID int64) (*account.Account, error) {
	acc, err := m.store.Get(ctx, userID)
	if errors.Is(err, account.ErrAccountNotFound) {
		acc, err = m.store.CreateDefault(ctx, userID)
		if err == nil {
			logger.Info(ctx, component, "account.create",
				slog.String("status", "ok"),
				slog.Int64("user_id", userID),
			)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load account: %w", err)
	}

	if patch, ok := acc.Backfill(); ok {
		if err := m.store.Update(ctx, userID, patch); err != nil {
			return nil, fmt.Errorf("conversation: backfill account: %w", err)
		}
		logger.Info(ctx, component, "account.backfill",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
		)
	}
	return acc, nil
}

// commit persists patch and mirrors it on acc only after the store accepted it.
func (m *Machine) commit(ctx context.Context, acc *account.Account, patch account.Patch) error {
	if patch.IsZero() {
		return nil
	}
	if err := m.store.Update(ctx, acc.UserID, patch); err != nil {
		return fmt.Errorf("conversation: commit %s: %w", acc.State, err)
	}
	acc.Apply(patch)
	return nil
}

// abandon resets a flow whose scratch cannot support its state.
func (m *Machine) abandon(ctx context.Context, acc *account.Account) ([]string, error) {
	logger.Warn(ctx, component, "conversation.abandon",
		slog.String("status", "fail"),
		slog.Int64("user_id", acc.UserID),
		slog.String("state", string(acc.State)),
	)
	if err := m.commit(ctx, acc, account.Reset()); err != nil {
		return nil, err
	}
	return []string{operationCancel}, nil
}

func (m *Machine) reply(ctx context.Context, acc *account.Account, notices []string) (Reply, error) {
	prompt, err := Render(acc)
	if errors.Is(err, ErrIncompleteFlow) {
		extra, aerr := m.abandon(ctx, acc)
		if aerr != nil {
			return Reply{}, aerr
		}
		notices = append(notices, extra...)
		prompt, err = Render(acc)
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{State: acc.State, Notices: notices, Prompt: prompt}, nil
}
