// Package event defines event types for decoupling components in Perch.
// These events enable communication between the window manager, control
// surface, tray, and hotkey registry without direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "window.created", "config.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Window Lifecycle Events
// -----------------------------------------------------------------------------

// WindowCreatedEvent is emitted when a window enters the live set.
type WindowCreatedEvent struct {
	baseEvent
	WindowID uint64 // Process-unique window identity
	Reheated bool   // Whether the window reused a refrigerated context
}

// NewWindowCreatedEvent creates a WindowCreatedEvent.
func NewWindowCreatedEvent(windowID uint64, reheated bool) WindowCreatedEvent {
	return WindowCreatedEvent{
		baseEvent: newBaseEvent("window.created"),
		WindowID:  windowID,
		Reheated:  reheated,
	}
}

// WindowClosedEvent is emitted when a window leaves the live set.
type WindowClosedEvent struct {
	baseEvent
	WindowID  uint64 // Identity of the closed window
	Remaining uint64 // Live window count after removal
}

// NewWindowClosedEvent creates a WindowClosedEvent.
func NewWindowClosedEvent(windowID, remaining uint64) WindowClosedEvent {
	return WindowClosedEvent{
		baseEvent: newBaseEvent("window.closed"),
		WindowID:  windowID,
		Remaining: remaining,
	}
}

// WindowCountChangedEvent is emitted whenever the live window count changes.
// The tray controller recomputes icon visibility on this event.
type WindowCountChangedEvent struct {
	baseEvent
	Count uint64 // Current live window count
}

// NewWindowCountChangedEvent creates a WindowCountChangedEvent.
func NewWindowCountChangedEvent(count uint64) WindowCountChangedEvent {
	return WindowCountChangedEvent{
		baseEvent: newBaseEvent("window.count_changed"),
		Count:     count,
	}
}

// QuakeModeChangedEvent is emitted when a window gains or loses quake mode.
// Quake windows force the tray icon visible regardless of configuration.
type QuakeModeChangedEvent struct {
	baseEvent
	WindowID uint64 // Window whose mode changed
	IsQuake  bool   // New mode
}

// NewQuakeModeChangedEvent creates a QuakeModeChangedEvent.
func NewQuakeModeChangedEvent(windowID uint64, isQuake bool) QuakeModeChangedEvent {
	return QuakeModeChangedEvent{
		baseEvent: newBaseEvent("window.quake_changed"),
		WindowID:  windowID,
		IsQuake:   isQuake,
	}
}

// -----------------------------------------------------------------------------
// Handoff Events
// -----------------------------------------------------------------------------

// HandoffReceivedEvent is emitted when the control surface accepts a launch
// request from a short-lived sender process.
type HandoffReceivedEvent struct {
	baseEvent
	ArgCount   int    // Number of tokens in the received command line
	WorkingDir string // Working directory the sender was launched from
}

// NewHandoffReceivedEvent creates a HandoffReceivedEvent.
func NewHandoffReceivedEvent(argCount int, workingDir string) HandoffReceivedEvent {
	return HandoffReceivedEvent{
		baseEvent:  newBaseEvent("handoff.received"),
		ArgCount:   argCount,
		WorkingDir: workingDir,
	}
}

// -----------------------------------------------------------------------------
// Hotkey Events
// -----------------------------------------------------------------------------

// HotkeyPressedEvent is emitted when a registered global hotkey fires.
type HotkeyPressedEvent struct {
	baseEvent
	Slot  int    // Registration slot index
	Chord string // Chord string the slot was registered with
}

// NewHotkeyPressedEvent creates a HotkeyPressedEvent.
func NewHotkeyPressedEvent(slot int, chord string) HotkeyPressedEvent {
	return HotkeyPressedEvent{
		baseEvent: newBaseEvent("hotkey.pressed"),
		Slot:      slot,
		Chord:     chord,
	}
}

// -----------------------------------------------------------------------------
// Settings and Environment Events
// -----------------------------------------------------------------------------

// ConfigChangedEvent is emitted when the settings file is reloaded, either
// from a file watcher notification or an explicit reload request.
type ConfigChangedEvent struct {
	baseEvent
	Path string // Path of the settings file that changed
}

// NewConfigChangedEvent creates a ConfigChangedEvent.
func NewConfigChangedEvent(path string) ConfigChangedEvent {
	return ConfigChangedEvent{
		baseEvent: newBaseEvent("config.changed"),
		Path:      path,
	}
}

// ThemeChangedEvent is emitted only on an actual dark/light transition.
// Repeated notifications reporting the same mode are suppressed upstream.
type ThemeChangedEvent struct {
	baseEvent
	Dark bool // True if the system switched to dark mode
}

// NewThemeChangedEvent creates a ThemeChangedEvent.
func NewThemeChangedEvent(dark bool) ThemeChangedEvent {
	return ThemeChangedEvent{
		baseEvent: newBaseEvent("theme.changed"),
		Dark:      dark,
	}
}

// -----------------------------------------------------------------------------
// Shutdown Events
// -----------------------------------------------------------------------------

// ShutdownRequestedEvent is emitted exactly once, when the last live window
// closes under a quit-when-last policy or a quit is explicitly requested.
type ShutdownRequestedEvent struct {
	baseEvent
	Reason string // "last_window_closed", "quit_requested", or "signal"
}

// NewShutdownRequestedEvent creates a ShutdownRequestedEvent.
func NewShutdownRequestedEvent(reason string) ShutdownRequestedEvent {
	return ShutdownRequestedEvent{
		baseEvent: newBaseEvent("shutdown.requested"),
		Reason:    reason,
	}
}
