//go:build integration

package postgres

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/m3rciful/walletbot/core/database"
	"github.com/m3rciful/walletbot/internal/account"
)

func setupStore(t *testing.T) (*Store, *sqlx.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("walletbot_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(ctx, dsn, findMigrationsDir(t)))

	db, err := database.ConnectDSN(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(db, 2*time.Second), db
}

// findMigrationsDir walks up from the package directory to the module root.
func findMigrationsDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for range 10 {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatal("migrations directory not found")
	return ""
}

func TestStoreLifecycle(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, 1)
	require.ErrorIs(t, err, account.ErrAccountNotFound)

	acc, err := st.CreateDefault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, account.StateMainMenu, acc.State)
	assert.Empty(t, acc.DepositMethods)
	assert.Equal(t, account.Legacy{}, acc.Legacy)

	again, err := st.CreateDefault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, acc, again)

	method, err := account.NewPaymentMethod(account.Paypal(), "Me@Example.com")
	require.NoError(t, err)
	require.NoError(t, st.AppendMethod(ctx, 1, account.DepositMethods, method))

	patch := account.Transition(account.StateConfirmDeposit, account.Scratch{Amount: 25, Method: &method})
	require.NoError(t, st.Update(ctx, 1, patch))

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, account.StateConfirmDeposit, got.State)
	assert.Equal(t, []account.PaymentMethod{method}, got.DepositMethods)
	require.NotNil(t, got.Scratch.Method)
	assert.Equal(t, "Paypal: me@example.com", got.Scratch.Method.Description)

	credit := account.Reset()
	credit.BalanceDelta = 25
	require.NoError(t, st.Update(ctx, 1, credit))

	debit := account.Reset()
	debit.BalanceDelta = -30
	require.ErrorIs(t, st.Update(ctx, 1, debit), account.ErrInsufficientFunds)
	require.ErrorIs(t, st.Update(ctx, 2, debit), account.ErrAccountNotFound)

	got, err = st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.Balance)
	assert.Equal(t, account.StateMainMenu, got.State)
	assert.True(t, got.Scratch.IsEmpty())

	overflow := account.Reset()
	overflow.BalanceDelta = math.MaxInt64 - 24
	require.ErrorIs(t, st.Update(ctx, 1, overflow), account.ErrBalanceOverflow)

	fill := account.Reset()
	fill.BalanceDelta = math.MaxInt64 - 25
	require.NoError(t, st.Update(ctx, 1, fill))
	got, err = st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.Balance)
}

func TestAppendFoldedIntoReplacedList(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	_, err := st.CreateDefault(ctx, 3)
	require.NoError(t, err)

	m, err := account.NewPaymentMethod(account.Bank(), "chase")
	require.NoError(t, err)
	patch := account.Patch{
		DepositMethods: &[]account.PaymentMethod{},
		Append:         &account.MethodAppend{List: account.DepositMethods, Method: m},
	}
	require.NoError(t, st.Update(ctx, 3, patch))

	got, err := st.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []account.PaymentMethod{m}, got.DepositMethods)
}

func TestLegacyRowBackfill(t *testing.T) {
	st, db := setupStore(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO accounts (user_id, balance) VALUES (9, 40)`)
	require.NoError(t, err)

	acc, err := st.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, account.Legacy{DepositMethods: true, WithdrawalMethods: true, State: true, Scratch: true}, acc.Legacy)

	patch, ok := acc.Backfill()
	require.True(t, ok)
	require.NoError(t, st.Update(ctx, 9, patch))

	acc, err = st.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, account.Legacy{}, acc.Legacy)
	assert.Equal(t, account.StateMainMenu, acc.State)
	assert.Equal(t, int64(40), acc.Balance)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	_, err := st.CreateDefault(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, st.Update(ctx, 5, account.Patch{BalanceDelta: 100}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Update(ctx, 5, account.Patch{BalanceDelta: -30}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	acc, err := st.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, ok)
	assert.Equal(t, int64(10), acc.Balance)
}

func TestPendingNotice(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	_, ok, err := st.LoadPendingNotice(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SavePendingNotice(ctx, 11))
	require.NoError(t, st.SavePendingNotice(ctx, 12))
	recipient, ok, err := st.LoadPendingNotice(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), recipient)

	require.NoError(t, st.DeletePendingNotice(ctx))
	_, ok, err = st.LoadPendingNotice(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
