// Package app wires the wallet bot: infrastructure from the bootstrap pipeline, the account
// store and locker chosen by configuration, the conversation machine and its Telegram
// handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/walletbot/core/bootstrap"
	corecmd "github.com/m3rciful/walletbot/core/cmd"
	"github.com/m3rciful/walletbot/core/logger"
	tg "github.com/m3rciful/walletbot/core/telegram"
	"github.com/m3rciful/walletbot/core/telegram/router"
	tgsender "github.com/m3rciful/walletbot/core/telegram/sender"
	"github.com/m3rciful/walletbot/internal/bot"
	"github.com/m3rciful/walletbot/internal/config"
	"github.com/m3rciful/walletbot/internal/conversation"
	"github.com/m3rciful/walletbot/internal/lock"
	"github.com/m3rciful/walletbot/internal/restart"
	"github.com/m3rciful/walletbot/internal/store"
	"github.com/m3rciful/walletbot/internal/store/memory"
	"github.com/m3rciful/walletbot/internal/store/postgres"

	tele "gopkg.in/telebot.v4"
)

const component = "app"

// accountStore is what both store backends provide.
type accountStore interface {
	store.Store
	restart.NoticeStore
}

// App is the assembled wallet bot.
type App struct {
	cfg     *config.Config
	process *Process
	infra   *bootstrap.Result

	store    accountStore
	locker   lock.Locker
	machine  *conversation.Machine
	restarts *restart.Coordinator
	handlers *bot.Handlers
}

var (
	_ corecmd.TelegramApp = (*App)(nil)
	_ corecmd.Supervisor  = (*App)(nil)
	_ corecmd.Closer      = (*App)(nil)
)

// Options tune New. Bootstrap defaults to bootstrap.Run.
type Options struct {
	Bootstrap func(bootstrap.Options) (*bootstrap.Result, error)
}

// New runs the bootstrap pipeline for cfg and assembles the application.
func New(cfg *config.Config, process *Process, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if process == nil {
		process = NewProcess()
	}
	run := opts.Bootstrap
	if run == nil {
		run = bootstrap.Run
	}

	bootOpts := bootstrap.Options{Config: cfg.CoreConfig(), InstanceID: process.InstanceID}
	if cfg.UsesPostgres() {
		db := cfg.Database
		bootOpts.Database = &db
	}
	if cfg.UsesRedis() {
		bootOpts.Redis = cfg.Redis.Options()
	}
	infra, err := run(bootOpts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, process: process, infra: infra}
	if a.store, err = newStore(cfg, infra); err != nil {
		_ = infra.Close()
		return nil, err
	}
	if a.locker, err = newLocker(cfg, infra); err != nil {
		_ = infra.Close()
		return nil, err
	}
	a.machine = conversation.New(a.store, nil, a.locker)
	a.restarts = restart.NewCoordinator(a.store)
	a.handlers = bot.New(a.machine, a.restarts, process)

	logger.Info(context.Background(), component, "wire",
		slog.String("status", "ok"),
		slog.String("backend", cfg.Store.Backend),
		slog.String("lock", cfg.Lock.Backend),
	)
	return a, nil
}

// Bootstrap adapts New to the command runner.
func Bootstrap(process *Process) func(corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	return func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
		cfg, ok := carrier.(*config.Config)
		if !ok {
			return nil, fmt.Errorf("app: unexpected config type %T", carrier)
		}
		return New(cfg, process, Options{})
	}
}

// LoadConfig adapts config.Load to the command runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newStore(cfg *config.Config, infra *bootstrap.Result) (accountStore, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StorePostgres:
		if infra.DB == nil {
			return nil, errors.New("app: postgres store without a database connection")
		}
		return postgres.New(infra.DB, cfg.Database.QueryTimeout()), nil
	}
	return nil, fmt.Errorf("app: unknown store backend %q", cfg.Store.Backend)
}

func newLocker(cfg *config.Config, infra *bootstrap.Result) (lock.Locker, error) {
	if cfg.Lock.Backend != config.LockRedis {
		return lock.NewLocal(), nil
	}
	if infra.Redis == nil {
		return nil, errors.New("app: redis lock without a redis client")
	}
	locker, err := lock.NewRedis(infra.Redis, redisLockOptions(cfg.Lock))
	if err != nil {
		return nil, fmt.Errorf("app: redis lock: %w", err)
	}
	return locker, nil
}

// redisLockOptions maps the settings; zero values fall back to the lock defaults.
func redisLockOptions(c config.LockConfig) lock.RedisOptions {
	return lock.RedisOptions{Expiry: c.Expiry(), Tries: c.Tries, RetryDelay: c.RetryDelay()}
}

// TelegramRunOptions registers the wallet commands and callbacks and describes the run.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	for name, cmd := range a.handlers.Commands() {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return tg.RunOptions{}, err
		}
	}
	if err := reg.RegisterCallback(bot.CallbackUnique, a.handlers.Select); err != nil {
		return tg.RunOptions{}, err
	}

	core := a.cfg.CoreConfig()
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(reg))
	routes = append(routes, router.TextRoutes(reg, a.handlers.Text)...)

	return tg.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			QueueSize:    core.Sender.QueueSize,
			Workers:      core.Sender.Workers,
			MaxRetries:   core.Sender.MaxRetries,
			RetryBackoff: core.Sender.RetryBackoff(),
		},
		Middlewares: tg.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart:     a.onStart,
	}, nil
}

// onStart delivers a pending restart notice. Delivery problems never block the start; the
// notice stays stored and is retried on the next start.
func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	_, _, err := a.restarts.ConsumePendingNotice(ctx, func(_ context.Context, recipient int64) error {
		_, err := rt.Bot.Send(&tele.Chat{ID: recipient}, restart.CompletedText)
		return err
	})
	if err != nil {
		logger.Warn(ctx, component, "restart.notice",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// Supervise implements corecmd.Supervisor.
func (a *App) Supervise(parent context.Context) context.Context {
	return a.process.Supervise(parent)
}

// Close releases the database and Redis clients.
func (a *App) Close() error {
	return a.infra.Close()
}
