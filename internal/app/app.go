// Package app defines the collaborator interfaces between the orchestration
// core and the hosted application: the UI logic host consumed by the window
// manager, the per-window logic it produces, and the summon behavior
// descriptors that hotkeys and tray interactions resolve to.
//
// The core calls these interfaces but does not implement window content.
// StdLogic provides the configuration-backed host used by the perch binary.
package app

import "time"

// MonitorBehavior controls which monitor a summoned window moves to.
type MonitorBehavior int

const (
	// MonitorInPlace leaves the window on its current monitor.
	MonitorInPlace MonitorBehavior = iota
	// MonitorToCurrent moves the window to the monitor with the active window.
	MonitorToCurrent
	// MonitorToMouse moves the window to the monitor under the cursor.
	MonitorToMouse
)

// String returns a human-readable name for a monitor behavior.
func (m MonitorBehavior) String() string {
	switch m {
	case MonitorInPlace:
		return "in_place"
	case MonitorToCurrent:
		return "to_current"
	case MonitorToMouse:
		return "to_mouse"
	default:
		return "unknown"
	}
}

// ParseMonitorBehavior converts a configuration string to a MonitorBehavior.
// Unknown values fall back to MonitorInPlace.
func ParseMonitorBehavior(s string) MonitorBehavior {
	switch s {
	case "to_current":
		return MonitorToCurrent
	case "to_mouse":
		return MonitorToMouse
	default:
		return MonitorInPlace
	}
}

// DesktopBehavior controls virtual-desktop movement on summon.
type DesktopBehavior int

const (
	// DesktopInPlace leaves the window on its current virtual desktop.
	DesktopInPlace DesktopBehavior = iota
	// DesktopToCurrent moves the window to the active virtual desktop.
	DesktopToCurrent
)

// String returns a human-readable name for a desktop behavior.
func (d DesktopBehavior) String() string {
	switch d {
	case DesktopInPlace:
		return "in_place"
	case DesktopToCurrent:
		return "to_current"
	default:
		return "unknown"
	}
}

// ParseDesktopBehavior converts a configuration string to a DesktopBehavior.
// Unknown values fall back to DesktopInPlace.
func ParseDesktopBehavior(s string) DesktopBehavior {
	if s == "to_current" {
		return DesktopToCurrent
	}
	return DesktopInPlace
}

// SummonArgs describes how a window is brought to the foreground: which
// window is targeted, where it lands, and whether an already-foreground
// window is hidden instead.
type SummonArgs struct {
	// WindowName targets a named window; empty targets the most
	// recently used one.
	WindowName string
	// Monitor controls monitor placement.
	Monitor MonitorBehavior
	// Desktop controls virtual-desktop placement.
	Desktop DesktopBehavior
	// ToggleVisibility hides the window when it is already foreground.
	ToggleVisibility bool
	// DropdownDuration animates quake-style windows; zero is instant.
	DropdownDuration time.Duration
}

// HotkeyCommand pairs a key chord with the summon behavior it triggers.
// The ordered command list is rebuilt from configuration on every reload.
type HotkeyCommand struct {
	Chord string
	Args  SummonArgs
}

// Logic is the UI logic host. The orchestration core drives it but never
// looks inside: settings schema, rendering, and tab management live behind
// this interface.
type Logic interface {
	// ReloadSettings re-reads the settings source. Called on the control
	// surface thread when the settings file changes.
	ReloadSettings() error

	// AllowHeadless reports whether the process should stay resident
	// after the last window closes.
	AllowHeadless() bool

	// RequestsTrayIcon reports whether configuration asks for a
	// persistent tray icon independent of window state.
	RequestsTrayIcon() bool

	// GlobalHotkeys returns the current hotkey command list, in slot
	// order. The registry rebinds from this list on every settings change.
	GlobalHotkeys() []HotkeyCommand

	// NewWindowLogic produces the UI logic for one window, seeded from
	// the launch arguments that requested it.
	NewWindowLogic(args []string) (WindowLogic, error)
}

// WindowLogic is the per-window UI host driven by a window execution
// context. One WindowLogic instance backs one UI session; a refrigerated
// context discards its WindowLogic and obtains a fresh one on reheat.
type WindowLogic interface {
	// Run drives the window's message pump until the user closes the
	// window's content. It blocks for the lifetime of the UI session.
	Run() error

	// Title returns the window's current title for tray menu labels.
	Title() string

	// IsQuakeWindow reports whether this window is in the special
	// always-tracked mode that forces the tray icon to exist.
	IsQuakeWindow() bool

	// Summon brings the window to the foreground per the given behavior.
	Summon(args SummonArgs)

	// Close asks the window to end its UI session.
	Close()
}
