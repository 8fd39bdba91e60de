// Package orchestrator wires the perch process together: instance election,
// the control surface, the window lifecycle manager, hotkeys, the tray icon,
// configuration watching, and persisted state. It owns the process's
// top-level control flow from launch to exit.
package orchestrator

import (
	"context"
	"os"

	"github.com/perch-term/perch/internal/app"
	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/coordinator"
	"github.com/perch-term/perch/internal/errors"
	"github.com/perch-term/perch/internal/event"
	"github.com/perch-term/perch/internal/hotkey"
	"github.com/perch-term/perch/internal/logging"
	"github.com/perch-term/perch/internal/state"
	"github.com/perch-term/perch/internal/surface"
	"github.com/perch-term/perch/internal/tray"
	"github.com/perch-term/perch/internal/window"
)

// Orchestrator runs one perch process.
type Orchestrator struct {
	cfg    *config.Config
	logger *logging.Logger

	runtimeDir string
	registrar  hotkey.Registrar
	shell      tray.Shell

	// watchConfig enables the settings file watcher. Disabled in tests
	// that have no config file on disk.
	watchConfig bool
}

// Option customizes an Orchestrator. The OS-level hotkey registrar and tray
// shell are platform glue supplied by the embedder; the defaults are inert.
type Option func(*Orchestrator)

// WithRegistrar supplies the OS global-hotkey registrar.
func WithRegistrar(r hotkey.Registrar) Option {
	return func(o *Orchestrator) { o.registrar = r }
}

// WithShell supplies the OS tray shell.
func WithShell(s tray.Shell) Option {
	return func(o *Orchestrator) { o.shell = s }
}

// WithRuntimeDir overrides the lock/socket directory.
func WithRuntimeDir(dir string) Option {
	return func(o *Orchestrator) { o.runtimeDir = dir }
}

// WithConfigWatcher toggles the settings file watcher.
func WithConfigWatcher(enabled bool) Option {
	return func(o *Orchestrator) { o.watchConfig = enabled }
}

// New creates an Orchestrator for an already-loaded configuration.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		logger:      logger.WithComponent("orchestrator"),
		runtimeDir:  coordinator.RuntimeDir(),
		registrar:   nopRegistrar{},
		shell:       nopShell{},
		watchConfig: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the process control flow: elect an owner, hand off or serve,
// run until shutdown, then flush state and clean up. The returned exit code
// is passed to a hard process exit by the caller; refrigerated window
// goroutines are deliberately never joined.
func (o *Orchestrator) Run(ctx context.Context, args []string, show uint32) (int, error) {
	coord := coordinator.NewCoordinatorAt(o.cfg.Instance, o.runtimeDir, o.logger)

	result, err := coord.AcquireOwnershipOrHandoff(ctx, show)
	if err != nil {
		return 1, err
	}
	switch result {
	case coordinator.HandedOff:
		// The owner hosts this launch; nothing left to do here.
		return 0, nil
	case coordinator.Aborted:
		// Dedup is best effort; give up quietly.
		o.logger.Warn("could not reach the owning instance, exiting")
		return 0, nil
	}

	return o.serve(ctx, coord, args, show)
}

// serve is the owner path: it builds every component and runs the dispatcher
// until the exit policy fires.
func (o *Orchestrator) serve(ctx context.Context, coord *coordinator.Coordinator, args []string, show uint32) (int, error) {
	// Windows outlive the directory they were launched from; move off it
	// so it is not pinned for the life of the process.
	if home, err := os.UserHomeDir(); err == nil {
		_ = os.Chdir(home)
	}

	store, err := state.NewStore(o.cfg.State.ResolveDir(), o.logger)
	if err != nil {
		return 1, errors.Wrap(err, "opening state store")
	}
	// The obligation is pinned now: layouts persisted by a previous
	// session mean buffer files may need sweeping at exit regardless of
	// what this session does.
	cleanupRequired := store.CleanupRequired()

	bus := event.NewBus()
	logic := app.NewStdLogic(o.cfg, o.logger)
	policy := window.ResolvePolicy(o.cfg.Window.Refrigeration)
	manager := window.NewManager(logic, policy, bus, o.logger)
	registry := hotkey.NewRegistry(o.registrar, o.logger)
	trayCtl := tray.NewController(o.shell, manager.SummonAll, o.logger)

	surf, err := surface.New(coord.SocketPath(), logic, manager, registry, trayCtl, bus, o.logger)
	if err != nil {
		return 1, errors.Wrap(err, "creating control surface")
	}
	surf.Start()
	defer surf.Stop()

	if o.watchConfig {
		watcher, err := config.NewWatcher(config.ConfigFile(), bus, o.logger)
		if err != nil {
			o.logger.Warn("settings watcher unavailable", "error", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	o.logger.Info("perch started",
		"variant", o.cfg.Instance.Variant,
		"refrigeration", policy.Refrigerate,
		"socket", coord.SocketPath())

	// The first window comes from the launch that won the election.
	manager.RequestNewWindow(window.Request{Args: args, Show: show})

	select {
	case <-manager.ShutdownSignal():
	case <-ctx.Done():
		o.logger.Info("shutdown requested", "reason", "signal")
		manager.Quit()
		<-manager.ShutdownSignal()
	}

	return o.shutdown(store, cleanupRequired), nil
}

// shutdown flushes persisted state and sweeps orphaned buffer files. It
// never blocks on window teardown: the caller hard-exits the process and
// parked contexts die with it.
func (o *Orchestrator) shutdown(store *state.Store, cleanupRequired bool) int {
	code := 0

	if err := store.Flush(); err != nil {
		o.logger.Error("state flush failed", "error", err)
		code = 1
	}

	if cleanupRequired {
		if err := store.CleanupBufferFiles(); err != nil {
			o.logger.Warn("buffer file cleanup failed", "error", err)
		}
	}

	o.logger.Info("perch exiting", "code", code)
	return code
}

// nopRegistrar accepts every registration without touching the OS. Real
// global hotkeys require platform glue injected via WithRegistrar.
type nopRegistrar struct{}

func (nopRegistrar) Register(int, hotkey.Chord) error { return nil }

func (nopRegistrar) Unregister(int) error { return nil }

// nopShell accepts every icon call without touching the OS.
type nopShell struct{}

func (nopShell) AddIcon() error { return nil }

func (nopShell) RemoveIcon() error { return nil }
