// Package event provides a pub-sub event bus for decoupled inter-component
// communication in Perch.
//
// This package enables loose coupling between the window manager, control
// surface, tray controller, and hotkey registry by allowing them to
// communicate through events rather than direct method calls. Components can
// publish events without knowing who will receive them, and subscribe to
// events without knowing who will produce them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// The package defines several categories of events:
//
// Window Lifecycle:
//   - [WindowCreatedEvent]: Emitted when a window enters the live set
//   - [WindowClosedEvent]: Emitted when a window leaves the live set
//   - [WindowCountChangedEvent]: Emitted whenever the live window count changes
//   - [QuakeModeChangedEvent]: Emitted when a window gains or loses quake mode
//
// Coordination:
//   - [HandoffReceivedEvent]: Emitted when a launch request arrives from another process
//   - [HotkeyPressedEvent]: Emitted when a registered global hotkey fires
//
// Settings and Environment:
//   - [ConfigChangedEvent]: Emitted when the settings file is reloaded
//   - [ThemeChangedEvent]: Emitted on an actual dark/light transition
//
// Shutdown:
//   - [ShutdownRequestedEvent]: Emitted exactly once when the process decides to exit
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously on the
// publisher's goroutine and protected against panics - a panicking handler
// will not prevent other handlers from being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe("window.created", func(e event.Event) {
//	    created := e.(event.WindowCreatedEvent)
//	    log.Printf("Window %d created", created.WindowID)
//	})
//
//	// Subscribe to all events (useful for logging)
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("Event: %s at %v", e.EventType(), e.Timestamp())
//	})
//
//	// Publish events
//	bus.Publish(event.NewWindowCreatedEvent(0, false))
//
//	// Unsubscribe when done
//	id := bus.Subscribe("config.changed", handler)
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - window.created, window.closed, window.count_changed, window.quake_changed
//   - handoff.received
//   - hotkey.pressed
//   - config.changed
//   - theme.changed
//   - shutdown.requested
package event
