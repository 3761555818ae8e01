package restart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/walletbot/internal/store/memory"
)

type recorder struct {
	sent []int64
	err  error
}

func (r *recorder) deliver(_ context.Context, recipient int64) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, recipient)
	return nil
}

func TestNoticeFiresOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	require.NoError(t, NewCoordinator(st).RequestRestart(ctx, 99))

	// A fresh coordinator stands in for the next process lifetime.
	next := NewCoordinator(st)
	rec := &recorder{}

	recipient, fired, err := next.ConsumePendingNotice(ctx, rec.deliver)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, int64(99), recipient)

	_, fired, err = next.ConsumePendingNotice(ctx, rec.deliver)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, []int64{99}, rec.sent)
}

func TestNoticeKeptWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	c := NewCoordinator(st)
	require.NoError(t, c.RequestRestart(ctx, 5))

	failing := &recorder{err: errors.New("telegram down")}
	_, fired, err := c.ConsumePendingNotice(ctx, failing.deliver)
	require.Error(t, err)
	assert.False(t, fired)

	recipient, ok, err := st.LoadPendingNotice(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), recipient)

	rec := &recorder{}
	_, fired, err = c.ConsumePendingNotice(ctx, rec.deliver)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, []int64{5}, rec.sent)
}

func TestLatestRequestWins(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(memory.New())
	require.NoError(t, c.RequestRestart(ctx, 1))
	require.NoError(t, c.RequestRestart(ctx, 2))

	rec := &recorder{}
	_, _, err := c.ConsumePendingNotice(ctx, rec.deliver)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, rec.sent)
}

func TestNilDeliver(t *testing.T) {
	_, _, err := NewCoordinator(memory.New()).ConsumePendingNotice(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilDeliver)
}
