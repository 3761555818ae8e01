package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/walletbot/internal/account"
	"github.com/m3rciful/walletbot/internal/store/memory"
)

func TestParseAmount(t *testing.T) {
	valid := map[string]int64{"1": 1, "100": 100, " 42 ": 42, "007": 7}
	for in, want := range valid {
		got, err := ParseAmount(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "0", "000", "-1", "+1", "1.5", "1e3", "ten", "99999999999999999999"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, account.ErrInvalidAmount, "input %q", in)
	}
}

func TestCheckSufficient(t *testing.T) {
	assert.NoError(t, CheckSufficient(50, 50))
	assert.ErrorIs(t, CheckSufficient(50, 80), account.ErrInsufficientFunds)
	assert.ErrorIs(t, CheckSufficient(50, 0), account.ErrInvalidAmount)
}

func TestCheckCredit(t *testing.T) {
	assert.NoError(t, CheckCredit(0, math.MaxInt64))
	assert.NoError(t, CheckCredit(math.MaxInt64-10, 10))
	assert.ErrorIs(t, CheckCredit(math.MaxInt64-10, 11), account.ErrBalanceOverflow)
	assert.ErrorIs(t, CheckCredit(5, 0), account.ErrInvalidAmount)
}

func TestCreditOverflowLeavesAccountUntouched(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	acc := account.New(1)
	acc.Balance = 9223372036854775000
	acc.State = account.StateConfirmDeposit
	st.Put(acc)

	err := New(st).Credit(ctx, 1, 9223372036854775000, account.Reset())
	require.ErrorIs(t, err, account.ErrInvalidAmount)

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775000), got.Balance)
	assert.Equal(t, account.StateConfirmDeposit, got.State)
}

func TestCreditCommitsTransition(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	acc := account.New(1)
	acc.State = account.StateConfirmDeposit
	acc.Scratch = account.Scratch{Amount: 30}
	st.Put(acc)

	l := New(st)
	require.NoError(t, l.Credit(ctx, 1, 30, account.Reset()))

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.Balance)
	assert.Equal(t, account.StateMainMenu, got.State)
	assert.True(t, got.Scratch.IsEmpty())

	assert.ErrorIs(t, l.Credit(ctx, 1, 0, account.Reset()), account.ErrInvalidAmount)
	assert.ErrorIs(t, l.Credit(ctx, 2, 5, account.Reset()), account.ErrAccountNotFound)
}

func TestDebitInsufficientLeavesAccountUntouched(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	acc := account.New(1)
	acc.Balance = 50
	acc.State = account.StateConfirmWithdrawal
	acc.Scratch = account.Scratch{Amount: 80}
	st.Put(acc)

	l := New(st)
	err := l.Debit(ctx, 1, 80, account.Reset())
	require.ErrorIs(t, err, account.ErrInsufficientFunds)

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Balance)
	assert.Equal(t, account.StateConfirmWithdrawal, got.State)
	assert.Equal(t, int64(80), got.Scratch.Amount)

	require.NoError(t, l.Debit(ctx, 1, 50, account.Reset()))
	got, err = st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
	assert.Equal(t, account.StateMainMenu, got.State)
}
