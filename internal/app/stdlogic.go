package app

import (
	"strings"
	"sync"

	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/logging"
)

// QuakeWindowName is the reserved window name that marks a window as a
// quake window. Launch arguments of the form "-w _quake" or
// "--window _quake" select it.
const QuakeWindowName = "_quake"

// StdLogic is the configuration-backed UI logic host used by the perch
// binary. Settings come from the config package; window logic instances are
// plain message-pump hosts whose content rendering lives outside this core.
type StdLogic struct {
	mu     sync.RWMutex
	cfg    *config.Config
	logger *logging.Logger
}

// NewStdLogic creates a StdLogic from an already-loaded configuration.
func NewStdLogic(cfg *config.Config, logger *logging.Logger) *StdLogic {
	return &StdLogic{
		cfg:    cfg,
		logger: logger.WithComponent("app"),
	}
}

// ReloadSettings re-reads configuration from the settings source.
func (l *StdLogic) ReloadSettings() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()

	l.logger.Info("settings reloaded", "hotkeys", len(cfg.Hotkeys))
	return nil
}

// Config returns the current configuration snapshot.
func (l *StdLogic) Config() *config.Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// AllowHeadless reports whether the process stays resident with no windows.
// An explicit always-show tray icon implies tray residency.
func (l *StdLogic) AllowHeadless() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Window.AllowHeadless || l.cfg.Tray.AlwaysShow
}

// RequestsTrayIcon reports whether configuration asks for a persistent icon.
func (l *StdLogic) RequestsTrayIcon() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Tray.AlwaysShow || l.cfg.Tray.MinimizeToTray
}

// GlobalHotkeys builds the hotkey command list from configuration,
// preserving file order so slot indices stay stable across identical
// reloads.
func (l *StdLogic) GlobalHotkeys() []HotkeyCommand {
	l.mu.RLock()
	defer l.mu.RUnlock()

	commands := make([]HotkeyCommand, 0, len(l.cfg.Hotkeys))
	for _, hk := range l.cfg.Hotkeys {
		commands = append(commands, HotkeyCommand{
			Chord: hk.Chord,
			Args: SummonArgs{
				WindowName:       hk.Window,
				Monitor:          ParseMonitorBehavior(hk.Monitor),
				Desktop:          ParseDesktopBehavior(hk.Desktop),
				ToggleVisibility: hk.ToggleVisibility,
				DropdownDuration: hk.DropdownDuration(),
			},
		})
	}
	return commands
}

// NewWindowLogic produces a window host seeded from launch arguments.
func (l *StdLogic) NewWindowLogic(args []string) (WindowLogic, error) {
	name := windowNameFromArgs(args)
	return &stdWindowLogic{
		title:  titleFromArgs(args, name),
		quake:  name == QuakeWindowName,
		logger: l.logger,
		done:   make(chan struct{}),
	}, nil
}

// windowNameFromArgs extracts the "-w"/"--window" target name, if present.
func windowNameFromArgs(args []string) string {
	for i, arg := range args {
		if (arg == "-w" || arg == "--window") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--window="); ok {
			return v
		}
	}
	return ""
}

// titleFromArgs extracts "--title", falling back to the window name or a
// default.
func titleFromArgs(args []string, name string) string {
	for i, arg := range args {
		if arg == "--title" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, "--title="); ok {
			return v
		}
	}
	if name != "" {
		return name
	}
	return "Perch"
}

// stdWindowLogic is the minimal per-window host: it pumps until closed.
// Content rendering is an external collaborator and lives outside the core.
type stdWindowLogic struct {
	title string
	quake bool

	logger *logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func (w *stdWindowLogic) Run() error {
	<-w.done
	return nil
}

func (w *stdWindowLogic) Title() string {
	return w.title
}

func (w *stdWindowLogic) IsQuakeWindow() bool {
	return w.quake
}

func (w *stdWindowLogic) Summon(args SummonArgs) {
	w.logger.Debug("window summoned",
		"title", w.title,
		"monitor", args.Monitor.String(),
		"desktop", args.Desktop.String(),
		"toggle", args.ToggleVisibility)
}

func (w *stdWindowLogic) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}
