package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/walletbot/core/config"
	coretelegram "github.com/m3rciful/walletbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	closed     bool
	supervised bool
	started    bool
	stopped    bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.stopped = true; return nil },
	}, nil
}

func (a *fakeApp) Supervise(parent context.Context) context.Context {
	a.supervised = true
	ctx, cancel := context.WithCancel(parent)
	cancel()
	return ctx
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresLifecycle(t *testing.T) {
	app := &fakeApp{}
	var gotPath string
	loggerClosed := false

	err := Run(Options{
		ConfigEnvVar:      "WALLETBOT_TEST_CONFIG",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { loggerClosed = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			assert.Error(t, ctx.Err(), "supervised context is already cancelled")
			return opts.OnStop(context.Background(), coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "configs/config.yaml", gotPath)
	assert.True(t, app.supervised)
	assert.True(t, app.started)
	assert.True(t, app.stopped)
	assert.True(t, app.closed)
	assert.True(t, loggerClosed)
}

func TestRunConfigPathFromEnv(t *testing.T) {
	t.Setenv("WALLETBOT_TEST_CONFIG", "/etc/walletbot.yaml")
	var gotPath string
	boom := errors.New("boom")

	err := Run(Options{
		ConfigEnvVar: "WALLETBOT_TEST_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			return nil, boom
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) { return &fakeApp{}, nil },
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "/etc/walletbot.yaml", gotPath)
}

func TestRunRequiresHooks(t *testing.T) {
	assert.Error(t, Run(Options{}))
	assert.Error(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}))
}

func TestRunBootstrapFailure(t *testing.T) {
	boom := errors.New("db down")
	err := Run(Options{
		LoadConfig:     func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return nil, boom },
		ShutdownLogger: func() error { return nil },
	})
	require.ErrorIs(t, err, boom)
}
