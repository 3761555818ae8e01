package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUptimeText(t *testing.T) {
	p := NewProcess()
	_, err := uuid.Parse(p.InstanceID)
	require.NoError(t, err)

	p.StartedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return p.StartedAt.Add(26*time.Hour + 3*time.Minute + 4*time.Second + 900*time.Millisecond) }

	assert.Equal(t, 26*time.Hour+3*time.Minute+4*time.Second, p.Uptime())
	assert.Equal(t, "The bot has been running for 26 hours, 3 minutes, and 4 seconds.", p.UptimeText())
}

func TestRestartCancelsSupervisedContext(t *testing.T) {
	p := NewProcess()
	ctx := p.Supervise(context.Background())
	assert.False(t, p.RestartRequested())
	require.NoError(t, ctx.Err())

	p.RequestRestart()
	assert.True(t, p.RestartRequested())
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("run context not cancelled")
	}
}

func TestRestartBeforeSupervise(t *testing.T) {
	p := NewProcess()
	p.RequestRestart()
	ctx := p.Supervise(context.Background())
	assert.Error(t, ctx.Err())
}
