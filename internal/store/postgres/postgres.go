// Package postgres implements the session store on PostgreSQL using sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/account"
	"github.com/m3rciful/walletbot/internal/store"
)

const (
	accountColumns   = `user_id, balance, deposit_methods, withdrawal_methods, state, scratch`
	restartNoticeKey = "restart_chat_id"
	defaultOpTimeout = 3 * time.Second
	componentDBStore = "db.store"
)

// Store is the PostgreSQL session store. It also persists the pending restart notice.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// New wraps an open sqlx handle. timeout bounds every statement; zero selects the default.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Store{db: db, timeout: timeout}
}

type accountRow struct {
	UserID            int64          `db:"user_id"`
	Balance           int64          `db:"balance"`
	DepositMethods    []byte         `db:"deposit_methods"`
	WithdrawalMethods []byte         `db:"withdrawal_methods"`
	State             sql.NullString `db:"state"`
	Scratch           []byte         `db:"scratch"`
}

func (r accountRow) toAccount() (*account.Account, error) {
	acc := &account.Account{UserID: r.UserID, Balance: r.Balance}

	if r.DepositMethods == nil {
		acc.Legacy.DepositMethods = true
	} else if err := json.Unmarshal(r.DepositMethods, &acc.DepositMethods); err != nil {
		return nil, fmt.Errorf("decode deposit_methods: %w", err)
	}
	if r.WithdrawalMethods == nil {
		acc.Legacy.WithdrawalMethods = true
	} else if err := json.Unmarshal(r.WithdrawalMethods, &acc.WithdrawalMethods); err != nil {
		return nil, fmt.Errorf("decode withdrawal_methods: %w", err)
	}
	if !r.State.Valid {
		acc.Legacy.State = true
	} else {
		st := account.State(r.State.String)
		if !st.Valid() {
			return nil, fmt.Errorf("decode state: unknown state %q", r.State.String)
		}
		acc.State = st
	}
	if r.Scratch == nil {
		acc.Legacy.Scratch = true
	} else if err := json.Unmarshal(r.Scratch, &acc.Scratch); err != nil {
		return nil, fmt.Errorf("decode scratch: %w", err)
	}
	return acc, nil
}

// Get loads the user's account.
func (s *Store) Get(ctx context.Context, userID int64) (*account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row accountRow
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, s.fail(ctx, "get", userID, err)
	}
	acc, err := row.toAccount()
	if err != nil {
		return nil, s.fail(ctx, "get", userID, err)
	}
	return acc, nil
}

// CreateDefault inserts the default record, keeping an existing one untouched.
func (s *Store) CreateDefault(ctx context.Context, userID int64) (*account.Account, error) {
	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(insertCtx, `
		INSERT INTO accounts (user_id, balance, deposit_methods, withdrawal_methods, state, scratch)
		VALUES ($1, 0, '[]'::jsonb, '[]'::jsonb, $2, '{}'::jsonb)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, string(account.StateMainMenu),
	)
	if err != nil {
		return nil, s.fail(ctx, "create", userID, err)
	}
	logger.Debug(ctx, componentDBStore, "account.create",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return s.Get(ctx, userID)
}

// Update applies the patch in a single UPDATE statement guarded against negative and
// overflowing balances.
func (s *Store) Update(ctx context.Context, userID int64, patch account.Patch) error {
	if patch.IsZero() {
		return nil
	}
	query, args, err := buildUpdate(userID, patch)
	if err != nil {
		return s.fail(ctx, "update", userID, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(execCtx, query, args...)
	if err != nil {
		return s.fail(ctx, "update", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail(ctx, "update", userID, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(execCtx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE user_id = $1)`, userID); err != nil {
		return s.fail(ctx, "update", userID, err)
	}
	if !exists {
		return account.ErrAccountNotFound
	}
	if patch.BalanceDelta > 0 {
		return account.ErrBalanceOverflow
	}
	return account.ErrInsufficientFunds
}

// AppendMethod appends a method with a single jsonb concatenation.
func (s *Store) AppendMethod(ctx context.Context, userID int64, list account.MethodList, method account.PaymentMethod) error {
	return s.Update(ctx, userID, account.Patch{Append: &account.MethodAppend{List: list, Method: method}})
}

func buildUpdate(userID int64, patch account.Patch) (string, []any, error) {
	args := []any{userID}
	sets := []string{"updated_at = now()"}
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	setJSON := func(column string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", column, err)
		}
		sets = append(sets, column+" = "+bind(string(raw))+"::jsonb")
		return nil
	}

	deposit, withdrawal := patch.DepositMethods, patch.WithdrawalMethods
	var appendTo string
	var appended []account.PaymentMethod
	if a := patch.Append; a != nil {
		// Fold the append into a list that the same patch replaces.
		switch {
		case a.List == account.DepositMethods && deposit != nil:
			list := append(append([]account.PaymentMethod{}, *deposit...), a.Method)
			deposit = &list
		case a.List == account.WithdrawalMethods && withdrawal != nil:
			list := append(append([]account.PaymentMethod{}, *withdrawal...), a.Method)
			withdrawal = &list
		case a.List == account.DepositMethods || a.List == account.WithdrawalMethods:
			appendTo = string(a.List)
			appended = []account.PaymentMethod{a.Method}
		default:
			return "", nil, fmt.Errorf("unknown method list %q", a.List)
		}
	}

	if patch.State != nil {
		sets = append(sets, "state = "+bind(string(*patch.State)))
	}
	if patch.Scratch != nil {
		if err := setJSON("scratch", patch.Scratch); err != nil {
			return "", nil, err
		}
	}
	if deposit != nil {
		if err := setJSON("deposit_methods", *deposit); err != nil {
			return "", nil, err
		}
	}
	if withdrawal != nil {
		if err := setJSON("withdrawal_methods", *withdrawal); err != nil {
			return "", nil, err
		}
	}
	if appendTo != "" {
		raw, err := json.Marshal(appended)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s: %w", appendTo, err)
		}
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, '[]'::jsonb) || %s::jsonb", appendTo, appendTo, bind(string(raw))))
	}

	where := "user_id = $1"
	// A credit is guarded by the largest balance it can still be added to, so the WHERE
	// clause itself never overflows bigint.
	switch {
	case patch.BalanceDelta > 0:
		delta := bind(patch.BalanceDelta)
		sets = append(sets, "balance = balance + "+delta)
		where += " AND balance <= " + bind(int64(math.MaxInt64)-patch.BalanceDelta)
	case patch.BalanceDelta < 0:
		delta := bind(patch.BalanceDelta)
		sets = append(sets, "balance = balance + "+delta)
		where += " AND balance + " + delta + " >= 0"
	}

	query := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE " + where
	return query, args, nil
}

// SavePendingNotice upserts the restart recipient.
func (s *Store) SavePendingNotice(ctx context.Context, recipient int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		restartNoticeKey, strconv.FormatInt(recipient, 10),
	)
	if err != nil {
		return s.fail(ctx, "notice.save", recipient, err)
	}
	return nil
}

// LoadPendingNotice returns the stored recipient, if any.
func (s *Store) LoadPendingNotice(ctx context.Context) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM settings WHERE key = $1`, restartNoticeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, s.fail(ctx, "notice.load", 0, err)
	}
	recipient, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false, s.fail(ctx, "notice.load", 0, fmt.Errorf("decode recipient %q: %w", raw, err))
	}
	return recipient, true, nil
}

// DeletePendingNotice removes the notice record.
func (s *Store) DeletePendingNotice(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, restartNoticeKey); err != nil {
		return s.fail(ctx, "notice.delete", 0, err)
	}
	return nil
}

func (s *Store) fail(ctx context.Context, op string, userID int64, err error) error {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", err.Error()),
	}
	if userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	logger.Error(ctx, componentDBStore, "store.fail", attrs...)
	return store.Unavailable(op, err)
}
