package window

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/perch-term/perch/internal/app"
	"github.com/perch-term/perch/internal/event"
	"github.com/perch-term/perch/internal/logging"
)

// Policy is the refrigeration capability, resolved once at startup.
type Policy struct {
	// Refrigerate keeps closed windows' execution contexts parked for
	// reuse instead of tearing them down.
	Refrigerate bool
}

// ResolvePolicy maps the configuration mode to a Policy. "auto" enables
// refrigeration where the platform window host is expensive to recreate.
func ResolvePolicy(mode string) Policy {
	switch mode {
	case "on":
		return Policy{Refrigerate: true}
	case "off":
		return Policy{Refrigerate: false}
	default:
		return Policy{Refrigerate: runtime.GOOS == "windows" || runtime.GOOS == "linux"}
	}
}

// Snapshot is one live window's state as seen by the tray and summon logic.
type Snapshot struct {
	ID    uint64
	Title string
	Quake bool
}

// Manager owns every window execution context, live or refrigerated.
// The live set and the refrigerated pool are each guarded by their own lock;
// neither lock is ever held while taking the other.
type Manager struct {
	logic  app.Logic
	bus    *event.Bus
	logger *logging.Logger

	refrigerate bool

	mu   sync.Mutex
	live map[uint64]*Context

	fridgeMu sync.Mutex
	fridge   []*Context // LIFO: reuse the most recently parked context

	nextID   atomic.Uint64
	quitting atomic.Bool

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewManager creates a Manager hosting windows produced by the given logic.
func NewManager(logic app.Logic, policy Policy, bus *event.Bus, logger *logging.Logger) *Manager {
	return &Manager{
		logic:       logic,
		bus:         bus,
		logger:      logger.WithComponent("window"),
		refrigerate: policy.Refrigerate,
		live:        make(map[uint64]*Context),
		shutdownCh:  make(chan struct{}),
	}
}

// RequestNewWindow satisfies a launch request, reusing a refrigerated
// context when one is parked and spawning a fresh one otherwise. It is
// fire-and-forget: the window registers itself in the live set once its UI
// session is up.
func (m *Manager) RequestNewWindow(req Request) {
	if ctx := m.popFridge(); ctx != nil {
		m.logger.Debug("reheating refrigerated window", "window_id", ctx.id)
		ctx.reheat <- req
		return
	}

	id := m.nextID.Add(1) - 1
	ctx := &Context{
		id:      id,
		manager: m,
		logger:  m.logger.WithWindow(id),
		state:   StateCreated,
		reheat:  make(chan Request, 1),
	}
	go ctx.run(req)
}

// registerLive adds a context to the live set once its UI session is ready.
func (m *Manager) registerLive(c *Context, reheated bool) {
	m.mu.Lock()
	c.state = StateActive
	c.lastActive = time.Now()
	m.live[c.id] = c
	count := uint64(len(m.live))
	quake := c.logic.IsQuakeWindow()
	m.mu.Unlock()

	c.logger.Info("window opened", "reheated", reheated, "live", count)

	m.bus.Publish(event.NewWindowCreatedEvent(c.id, reheated))
	m.bus.Publish(event.NewWindowCountChangedEvent(count))
	if quake {
		m.bus.Publish(event.NewQuakeModeChangedEvent(c.id, true))
	}
}

// unregisterLive removes a context whose UI session ended and evaluates the
// zero-count exit policy. The policy check happens-after removal so a
// context headed for the fridge can never be counted as still open.
func (m *Manager) unregisterLive(c *Context) {
	m.mu.Lock()
	quake := c.logic != nil && c.logic.IsQuakeWindow()
	delete(m.live, c.id)
	count := uint64(len(m.live))
	m.mu.Unlock()

	c.logger.Info("window closed", "live", count)

	m.bus.Publish(event.NewWindowClosedEvent(c.id, count))
	m.bus.Publish(event.NewWindowCountChangedEvent(count))
	if quake {
		m.bus.Publish(event.NewQuakeModeChangedEvent(c.id, false))
	}

	m.evaluateExitPolicy()
}

// OnWindowRemoved removes a window by identity, for callers outside the
// context goroutine. Unknown identities are ignored.
func (m *Manager) OnWindowRemoved(id uint64) {
	m.mu.Lock()
	c, ok := m.live[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	// Closing the logic ends its Run loop; the context goroutine then
	// unregisters itself.
	c.logic.Close()
}

// evaluateExitPolicy fires the shutdown signal exactly once, when no live
// windows remain and the process is either quitting or not allowed to stay
// resident headless.
func (m *Manager) evaluateExitPolicy() {
	if m.RemainingWindowCount() != 0 {
		return
	}

	quitWhenLast := !m.logic.AllowHeadless()
	if !m.quitting.Load() && !quitWhenLast {
		return
	}

	m.shutdownOnce.Do(func() {
		reason := "last_window_closed"
		if m.quitting.Load() {
			reason = "quit_requested"
		}
		m.logger.Info("shutdown requested", "reason", reason)
		m.bus.Publish(event.NewShutdownRequestedEvent(reason))
		close(m.shutdownCh)
	})
}

// RemainingWindowCount returns the live set size. Refrigerated contexts do
// not count toward "windows remain".
func (m *Manager) RemainingWindowCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.live))
}

// RefrigeratedCount returns the refrigerated pool size.
func (m *Manager) RefrigeratedCount() int {
	m.fridgeMu.Lock()
	defer m.fridgeMu.Unlock()
	return len(m.fridge)
}

// Snapshot projects the live set for tray menus and summon targeting,
// ordered most recently used first.
func (m *Manager) Snapshot() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	contexts := make([]*Context, 0, len(m.live))
	for _, c := range m.live {
		contexts = append(contexts, c)
	}
	// Most recently used first.
	for i := 1; i < len(contexts); i++ {
		for j := i; j > 0 && contexts[j].lastActive.After(contexts[j-1].lastActive); j-- {
			contexts[j], contexts[j-1] = contexts[j-1], contexts[j]
		}
	}

	snap := make([]Snapshot, len(contexts))
	for i, c := range contexts {
		snap[i] = Snapshot{
			ID:    c.id,
			Title: c.logic.Title(),
			Quake: c.logic.IsQuakeWindow(),
		}
	}
	return snap
}

// SummonWindow brings a window to the foreground per the given behavior.
// A named target matches by title; an empty name targets the most recently
// used window. Misses are ignored.
func (m *Manager) SummonWindow(args app.SummonArgs) {
	c := m.findTarget(args.WindowName)
	if c == nil {
		m.logger.Debug("summon target not found", "window", args.WindowName)
		return
	}

	m.mu.Lock()
	c.lastActive = time.Now()
	logic := c.logic
	m.mu.Unlock()

	if logic != nil {
		logic.Summon(args)
	}
}

// SummonByID brings a specific window to the foreground, for tray menu
// selections.
func (m *Manager) SummonByID(id uint64) {
	m.mu.Lock()
	c, ok := m.live[id]
	var logic app.WindowLogic
	if ok {
		c.lastActive = time.Now()
		logic = c.logic
	}
	m.mu.Unlock()

	if logic != nil {
		logic.Summon(app.SummonArgs{})
	}
}

// SummonAll re-summons every live window. Used when the tray icon is
// removed so windows hidden in reliance on it are not stranded invisible.
func (m *Manager) SummonAll() {
	m.mu.Lock()
	logics := make([]app.WindowLogic, 0, len(m.live))
	for _, c := range m.live {
		if c.logic != nil {
			logics = append(logics, c.logic)
		}
	}
	m.mu.Unlock()

	for _, logic := range logics {
		logic.Summon(app.SummonArgs{})
	}
}

// findTarget resolves a summon target under the live-set lock.
func (m *Manager) findTarget(name string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Context
	for _, c := range m.live {
		if name != "" {
			if c.logic != nil && c.logic.Title() == name {
				return c
			}
			continue
		}
		if best == nil || c.lastActive.After(best.lastActive) {
			best = c
		}
	}
	if name != "" {
		return nil
	}
	return best
}

// Quit closes every live window and marks the process as quitting, which
// overrides headless residency. Refrigerated contexts are not joined; they
// terminate with the process.
func (m *Manager) Quit() {
	m.quitting.Store(true)

	m.mu.Lock()
	logics := make([]app.WindowLogic, 0, len(m.live))
	for _, c := range m.live {
		if c.logic != nil {
			logics = append(logics, c.logic)
		}
	}
	m.mu.Unlock()

	for _, logic := range logics {
		logic.Close()
	}

	// With no windows open, the exit policy fires here instead.
	m.evaluateExitPolicy()
}

// ShutdownSignal is closed exactly once, when the exit policy decides the
// process should terminate.
func (m *Manager) ShutdownSignal() <-chan struct{} {
	return m.shutdownCh
}

// pushFridge parks a context for reuse.
func (m *Manager) pushFridge(c *Context) {
	m.fridgeMu.Lock()
	m.fridge = append(m.fridge, c)
	m.fridgeMu.Unlock()
}

// popFridge removes the most recently parked context, or nil.
func (m *Manager) popFridge() *Context {
	m.fridgeMu.Lock()
	defer m.fridgeMu.Unlock()

	if len(m.fridge) == 0 {
		return nil
	}
	c := m.fridge[len(m.fridge)-1]
	m.fridge = m.fridge[:len(m.fridge)-1]
	return c
}
