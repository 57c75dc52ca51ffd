// Package daemon assembles the window manager: display backend, command
// channel, signals, reconciler and config watcher all feed one reactor.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/hotkeys"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/reactor"
	"github.com/1broseidon/tilewm/internal/runtimepath"
	"github.com/1broseidon/tilewm/internal/signals"
	"github.com/1broseidon/tilewm/internal/wm"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitDisplay        = 1
	ExitBind           = 2
	ExitConfig         = 3
	ExitConnectionLost = 4
)

// FatalError is a failure that ends the daemon with a specific exit code.
type FatalError struct {
	Code int
	Err  error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return fatal.Code
	}
	var invalid *config.ValidationError
	if errors.As(err, &invalid) {
		return ExitConfig
	}
	return ExitDisplay
}

// BackendFactory opens the display connection.
type BackendFactory func(display string, logger *slog.Logger) (platform.Backend, error)

// KeysFactory builds the hotkey table for a backend.
type KeysFactory func(backend platform.Backend, logger *slog.Logger) (wm.Keys, error)

// Options configures Run.
type Options struct {
	Config     *config.Config
	ConfigPath string
	Display    string
	// SocketPath overrides Config.SocketPath and the runtime default.
	SocketPath string
	Logger     *slog.Logger

	NewBackend BackendFactory
	NewKeys    KeysFactory
	// DrainTimeout bounds how long outstanding replies may take at exit.
	DrainTimeout time.Duration
}

// DefaultBackend connects to an X11 display.
func DefaultBackend(display string, logger *slog.Logger) (platform.Backend, error) {
	b, err := platform.NewLinuxBackend(display, logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DefaultKeys grabs hotkeys on an X11 backend.
func DefaultKeys(backend platform.Backend, logger *slog.Logger) (wm.Keys, error) {
	h, err := hotkeys.NewHandler(backend, logger)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Run starts the window manager and blocks until it stops. Cancelling ctx
// or receiving SIGTERM drains the command channel and returns nil.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return &FatalError{Code: ExitConfig, Err: err}
	}
	newBackend := opts.NewBackend
	if newBackend == nil {
		newBackend = DefaultBackend
	}
	newKeys := opts.NewKeys
	if newKeys == nil {
		newKeys = DefaultKeys
	}
	drainTimeout := opts.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 2 * time.Second
	}

	socketPath, err := resolveSocketPath(opts, cfg)
	if err != nil {
		return &FatalError{Code: ExitBind, Err: err}
	}

	backend, err := newBackend(opts.Display, logger)
	if err != nil {
		return &FatalError{Code: ExitDisplay, Err: err}
	}
	defer backend.Disconnect()

	keys, err := newKeys(backend, logger)
	if err != nil {
		logger.Warn("hotkeys disabled", "error", err)
	}

	manager := wm.New(wm.Options{
		Backend:    backend,
		Config:     cfg,
		Keys:       keys,
		Logger:     logger,
		LoadConfig: configLoader(opts.ConfigPath),
	})

	displays, err := backend.Outputs()
	if err != nil {
		return &FatalError{Code: ExitDisplay, Err: fmt.Errorf("failed to read outputs: %w", err)}
	}
	existing, err := backend.Existing()
	if err != nil {
		logger.Warn("failed to list existing windows", "error", err)
	}
	if err := manager.Bootstrap(displays, existing); err != nil {
		return &FatalError{Code: ExitDisplay, Err: err}
	}

	server := ipc.NewServer(socketPath, logger)
	loop := reactor.New(reactor.Config{
		Handler: manager,
		Drainer: server,
		Logger:  logger,
	})

	sourcesCtx, stopSources := context.WithCancel(context.Background())
	var sources sync.WaitGroup
	defer func() {
		stopSources()
		sources.Wait()
	}()

	if err := server.Start(sourcesCtx, loop.PostCommand); err != nil {
		return &FatalError{Code: ExitBind, Err: err}
	}
	defer server.Stop(drainTimeout)

	stopSignals := signals.Start(sourcesCtx, loop.PostSignal)
	defer stopSignals()

	if err := backend.Start(sourcesCtx, loop.PostDisplay); err != nil {
		return &FatalError{Code: ExitDisplay, Err: err}
	}

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: time.Duration(cfg.ReconcileIntervalSeconds) * time.Second,
		Logger:   logger,
	}, backend.LiveWindows, loop.PostLiveWindows)
	sources.Add(1)
	go func() {
		defer sources.Done()
		reconciler.Run(sourcesCtx)
	}()

	if cfg.WatchConfig && opts.ConfigPath != "" {
		watcher, err := NewConfigWatcher(opts.ConfigPath, loop.PostConfig, logger)
		if err != nil {
			logger.Warn("config watching disabled", "error", err)
		} else {
			watcher.Start(sourcesCtx)
			defer watcher.Stop()
		}
	}

	Autostart(cfg.Autostart, logger)
	logger.Info("window manager running",
		"outputs", len(displays),
		"adopted", len(existing),
		"socket", socketPath)

	err = loop.Run(ctx)
	if errors.Is(err, reactor.ErrConnectionLost) {
		return &FatalError{Code: ExitConnectionLost, Err: err}
	}
	return err
}

func resolveSocketPath(opts Options, cfg *config.Config) (string, error) {
	if opts.SocketPath != "" {
		return opts.SocketPath, nil
	}
	if cfg.SocketPath != "" {
		return cfg.SocketPath, nil
	}
	if opts.Display != "" {
		return runtimepath.SocketPathForDisplay(opts.Display)
	}
	return runtimepath.SocketPath()
}

func configLoader(path string) func() (*config.Config, error) {
	if path == "" {
		return config.Load
	}
	return func() (*config.Config, error) {
		res, err := config.LoadFromPath(path)
		if err != nil {
			return nil, err
		}
		return res.Config, nil
	}
}
