// Package window owns the set of live window execution contexts: creating
// them, reusing refrigerated ones, tracking per-window identity, and
// removing contexts on close. It also tracks the global "no windows remain"
// condition that triggers process shutdown.
package window

import (
	"runtime"
	"time"

	"github.com/perch-term/perch/internal/app"
	"github.com/perch-term/perch/internal/logging"
)

// State is the liveness state of a window execution context.
type State int32

const (
	// StateCreated means the context exists but its UI session has not
	// registered in the live set yet.
	StateCreated State = iota
	// StateActive means the context is pumping a live UI session.
	StateActive
	// StateRefrigerated means the UI session ended but the context's
	// goroutine is parked in the pool awaiting reuse.
	StateRefrigerated
	// StateTerminated means the context's goroutine has exited.
	StateTerminated
)

// String returns a human-readable name for a state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateRefrigerated:
		return "refrigerated"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Request seeds or re-seeds one window: the launch arguments and the OS
// show-command hint carried by the invocation that asked for it.
type Request struct {
	Args []string
	Show uint32
}

// Context represents one open top-level window. The manager owns it
// exclusively while live or refrigerated; the context's own goroutine holds
// a non-owning reference to drive its message pump.
type Context struct {
	// id is assigned on first creation and stays stable across
	// refrigeration reuse.
	id uint64

	manager *Manager
	logger  *logging.Logger

	// logic is the hosted UI session. Replaced on every reheat,
	// nil while refrigerated.
	logic app.WindowLogic

	// state is written only by the context's own goroutine and the
	// manager under its live-set lock.
	state State

	// lastActive orders windows for most-recently-used summon targeting.
	// Guarded by the manager's live-set lock.
	lastActive time.Time

	// reheat is the single-slot mailbox the parked goroutine blocks on.
	// A buffered send wakes it with the request that reuses it.
	reheat chan Request
}

// ID returns the context's process-unique window identity.
func (c *Context) ID() uint64 {
	return c.id
}

// run is the context goroutine: it drives one UI session per iteration,
// parking in the refrigerated pool between sessions when policy allows.
// Window hosts are thread-affine, so the goroutine pins its OS thread.
func (c *Context) run(req Request) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	reheated := false
	for {
		logic, err := c.manager.logic.NewWindowLogic(req.Args)
		if err != nil {
			c.logger.Error("failed to create window logic", "error", err)
			c.state = StateTerminated
			c.manager.evaluateExitPolicy()
			return
		}

		c.logic = logic
		c.manager.registerLive(c, reheated)

		if err := logic.Run(); err != nil {
			c.logger.Warn("window pump exited with error", "error", err)
		}

		// Removal and the zero-count policy check happen before the
		// fridge push, so a reheated window is never miscounted as
		// still open.
		c.manager.unregisterLive(c)

		if !c.manager.refrigerate || c.manager.quitting.Load() {
			c.logic = nil
			c.state = StateTerminated
			return
		}

		// Release the UI session but keep the goroutine and its
		// thread alive for fast reuse.
		c.logic = nil
		c.state = StateRefrigerated
		c.manager.pushFridge(c)

		select {
		case req = <-c.reheat:
			reheated = true
		case <-c.manager.shutdownCh:
			c.state = StateTerminated
			return
		}
	}
}
