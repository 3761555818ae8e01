package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Process describes the running bot process: when it started, which instance it is and
// whether it was asked to restart.
type Process struct {
	StartedAt  time.Time
	InstanceID string

	now     func() time.Time
	restart atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewProcess stamps the start time and a fresh instance id.
func NewProcess() *Process {
	return &Process{StartedAt: time.Now(), InstanceID: uuid.NewString(), now: time.Now}
}

// Uptime returns the time since start, truncated to whole seconds.
func (p *Process) Uptime() time.Duration {
	return p.now().Sub(p.StartedAt).Truncate(time.Second)
}

// UptimeText renders Uptime for the admin command.
func (p *Process) UptimeText() string {
	up := p.Uptime()
	h := int(up.Hours())
	m := int(up.Minutes()) % 60
	s := int(up.Seconds()) % 60
	return fmt.Sprintf("The bot has been running for %d hours, %d minutes, and %d seconds.", h, m, s)
}

// Supervise derives the run context. It is cancelled when a restart is requested.
func (p *Process) Supervise(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	if p.restart.Load() {
		cancel()
	}
	return ctx
}

// RequestRestart marks the process for re-execution and stops the current run.
func (p *Process) RequestRestart() {
	p.restart.Store(true)
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RestartRequested reports whether the run ended to restart.
func (p *Process) RestartRequested() bool { return p.restart.Load() }
