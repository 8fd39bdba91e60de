package hotkey

import (
	"github.com/perch-term/perch/internal/app"
	"github.com/perch-term/perch/internal/errors"
	"github.com/perch-term/perch/internal/logging"
)

// Registrar is the OS-level registration surface. Register binds a chord at
// a slot index so the OS reports that index back when the chord fires;
// Unregister frees a slot. Neither call is idempotent at the OS level.
type Registrar interface {
	Register(slot int, chord Chord) error
	Unregister(slot int) error
}

// binding is one configured hotkey: its slot doubles as the OS registration
// index. A binding whose registration failed stays in the list (so slot
// numbering matches configuration order) but never fires.
type binding struct {
	chord Chord
	args  app.SummonArgs
}

// Registry owns the ordered hotkey binding list. All methods must be called
// from the control surface dispatcher goroutine; registering a global hotkey
// from any other thread fails on some platforms, so no internal locking is
// provided or needed.
type Registry struct {
	registrar Registrar
	logger    *logging.Logger
	bindings  []binding
}

// NewRegistry creates a Registry on top of the given OS registrar.
func NewRegistry(registrar Registrar, logger *logging.Logger) *Registry {
	return &Registry{
		registrar: registrar,
		logger:    logger.WithComponent("hotkey"),
	}
}

// Rebind replaces the entire binding list. Every previously used slot is
// unregistered unconditionally first: duplicate registrations silently
// succeed without replacing the old binding, which would leak it. A chord
// that fails to parse or register is logged and its slot left unbound; the
// rest of the rebind proceeds.
func (r *Registry) Rebind(commands []app.HotkeyCommand) {
	for slot := range r.bindings {
		if err := r.registrar.Unregister(slot); err != nil {
			r.logger.Debug("failed to unregister hotkey slot", "slot", slot, "error", err)
		}
	}

	r.bindings = make([]binding, 0, len(commands))
	for slot, cmd := range commands {
		chord, err := ParseChord(cmd.Chord)
		if err != nil {
			r.logger.Warn("skipping unparseable hotkey chord",
				"slot", slot, "chord", cmd.Chord, "error", err)
			r.bindings = append(r.bindings, binding{args: cmd.Args})
			continue
		}

		if err := r.registrar.Register(slot, chord); err != nil {
			regErr := errors.NewRegistrationError(slot, chord.String(), err)
			r.logger.Warn("hotkey registration failed", "error", regErr)
		}
		r.bindings = append(r.bindings, binding{chord: chord, args: cmd.Args})
	}
}

// Dispatch maps a fired slot index back to its summon behavior.
// Out-of-range indices are ignored.
func (r *Registry) Dispatch(slot int) (app.SummonArgs, bool) {
	if slot < 0 || slot >= len(r.bindings) {
		return app.SummonArgs{}, false
	}
	return r.bindings[slot].args, true
}

// ChordAt returns the display form of the chord bound at a slot, or "" for
// out-of-range or unbound slots.
func (r *Registry) ChordAt(slot int) string {
	if slot < 0 || slot >= len(r.bindings) {
		return ""
	}
	if r.bindings[slot].chord == (Chord{}) {
		return ""
	}
	return r.bindings[slot].chord.String()
}

// Count returns the current binding list length, including unbound slots.
func (r *Registry) Count() int {
	return len(r.bindings)
}

// UnregisterAll frees every slot. Called during shutdown.
func (r *Registry) UnregisterAll() {
	for slot := range r.bindings {
		if err := r.registrar.Unregister(slot); err != nil {
			r.logger.Debug("failed to unregister hotkey slot", "slot", slot, "error", err)
		}
	}
	r.bindings = nil
}
