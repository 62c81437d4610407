package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/handoff/internal/config"
	"github.com/Iron-Ham/handoff/internal/dispatch"
	"github.com/Iron-Ham/handoff/internal/event"
	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/owner"
	"github.com/Iron-Ham/handoff/internal/pool"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// App wraps the Bubbletea program and the dispatcher it hosts
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	bus    *event.Bus
	pool   *pool.Pool
	poster *ProgramPoster
	d      *dispatch.Dispatcher
	root   *owner.Scope

	program *tea.Program
}

// New creates a new TUI application
func New(cfg *config.Config, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := event.NewBus(logger)
	p := pool.New(pool.Config{
		Workers:    cfg.Dispatch.Workers,
		Multiplier: cfg.Dispatch.WorkerMultiplier,
	}, logger)
	poster := NewProgramPoster(logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		pool:   p,
		poster: poster,
		d: dispatch.New(p, poster,
			dispatch.WithLogger(logger),
			dispatch.WithEventBus(bus),
			dispatch.WithStrictListeners(cfg.Dispatch.StrictListeners),
		),
		root: owner.NewScope("demo", bus),
	}
}

// Run starts the TUI application and blocks until it exits
func (a *App) Run() error {
	model := NewModel(a.d, a.root, a.cfg, a.logger)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		model.width, model.height = w, h
	}

	a.program = tea.NewProgram(model, tea.WithAltScreen())
	a.poster.Bind(a.program.Send)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pool.Start()
	go func() {
		if err := a.poster.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("delivery loop stopped", "error", err)
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		if _, ok := <-sigChan; ok {
			a.program.Send(tea.Quit())
		}
	}()

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
				a.program.Send(configChangedMsg{path: e.Name})
			}
		})
		viper.WatchConfig()
	}

	_, err := a.program.Run()

	signal.Stop(sigChan)
	close(sigChan)

	a.shutdown()
	return err
}

// shutdown ends every owner, lets queued work drain, and stops the loop.
func (a *App) shutdown() {
	a.root.Deactivate()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Dispatch.ShutdownTimeout())
	defer cancel()
	if err := a.pool.Shutdown(ctx); err != nil {
		a.logger.Warn("pool shutdown incomplete", "error", err)
	}
	a.poster.Close()

	s := a.d.Stats()
	a.logger.Info("demo finished",
		"registered", s.Registered,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"discarded", s.Discarded,
		"dropped", s.Dropped,
	)
}
