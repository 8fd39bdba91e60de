// Package surface is the process-wide control channel of an owning
// instance: a Unix domain socket that receives launch handoffs, plus a
// single dispatcher goroutine that routes handoffs, hotkey firings, tray
// interactions, and OS theme/session notifications to the window manager,
// the hotkey registry, and the tray controller. Hotkey and tray state are
// mutated only on the dispatcher goroutine, so neither needs a lock.
package surface

import (
	"io"
	"net"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/perch-term/perch/internal/app"
	"github.com/perch-term/perch/internal/errors"
	"github.com/perch-term/perch/internal/event"
	"github.com/perch-term/perch/internal/handoff"
	"github.com/perch-term/perch/internal/hotkey"
	"github.com/perch-term/perch/internal/logging"
	"github.com/perch-term/perch/internal/tray"
	"github.com/perch-term/perch/internal/window"
)

// readTimeout bounds one handoff connection so a hung sender cannot pin a
// reader goroutine forever.
const readTimeout = 10 * time.Second

// queueDepth is the dispatcher mailbox capacity. Overflow drops the message;
// every producer is a notification that can be regenerated.
const queueDepth = 64

// Messages routed to the dispatcher goroutine.
type message interface{}

type msgHandoff struct{ req *handoff.LaunchRequest }
type msgHotkey struct{ slot int }
type msgTraySelect struct{}
type msgTrayMenu struct{ windowID uint64 }
type msgThemeChanged struct{ dark bool }
type msgShellRestarted struct{}
type msgSettingsChanged struct{}
type msgRecomputeTray struct{}

// Surface owns the control socket and the dispatcher goroutine.
type Surface struct {
	logic    app.Logic
	manager  *window.Manager
	registry *hotkey.Registry
	tray     *tray.Controller
	bus      *event.Bus
	logger   *logging.Logger

	listener net.Listener
	msgs     chan message

	// dark is the last observed theme, dispatcher-confined. The OS signal
	// fires on unrelated setting changes too, so transitions are deduped.
	dark bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Surface listening at socketPath. A stale socket left by a
// dead owner is removed first. Failure to create the listener is a startup
// failure; there is no degraded mode without a control surface.
func New(socketPath string, logic app.Logic, manager *window.Manager, registry *hotkey.Registry, trayCtl *tray.Controller, bus *event.Bus, logger *logging.Logger) (*Surface, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "removing stale control socket")
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSurfaceUnavailable, err.Error())
	}

	return &Surface{
		logic:    logic,
		manager:  manager,
		registry: registry,
		tray:     trayCtl,
		bus:      bus,
		logger:   logger.WithComponent("surface"),
		listener: ln,
		msgs:     make(chan message, queueDepth),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the listener and dispatcher goroutines and applies the
// initial configuration (hotkey bindings, tray state). Window count and
// quake changes republish through the event bus into the dispatcher so tray
// state always reflects the aggregate window set.
func (s *Surface) Start() {
	s.bus.Subscribe("config.changed", func(event.Event) {
		s.post(msgSettingsChanged{})
	})
	s.bus.Subscribe("window.count_changed", func(event.Event) {
		s.post(msgRecomputeTray{})
	})
	s.bus.Subscribe("window.quake_changed", func(event.Event) {
		s.post(msgRecomputeTray{})
	})

	go s.acceptLoop()
	go s.dispatchLoop()

	// Initial hotkey and tray state come from the same path as a reload.
	s.post(msgSettingsChanged{})
}

// Stop closes the listener and stops the dispatcher. Safe to call more than
// once.
func (s *Surface) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = s.listener.Close()
	})
	<-s.doneCh
}

// NotifyHotkeyPressed posts a global hotkey firing by registration slot.
func (s *Surface) NotifyHotkeyPressed(slot int) {
	s.post(msgHotkey{slot: slot})
}

// NotifyTraySelected posts a primary tray icon activation.
func (s *Surface) NotifyTraySelected() {
	s.post(msgTraySelect{})
}

// NotifyTrayMenuCommand posts a tray menu selection for a specific window.
func (s *Surface) NotifyTrayMenuCommand(windowID uint64) {
	s.post(msgTrayMenu{windowID: windowID})
}

// NotifyThemeChanged posts an OS theme notification.
func (s *Surface) NotifyThemeChanged(dark bool) {
	s.post(msgThemeChanged{dark: dark})
}

// NotifyShellRestarted posts an OS shell restart notification.
func (s *Surface) NotifyShellRestarted() {
	s.post(msgShellRestarted{})
}

// Menu projects the current live window set into tray menu items.
func (s *Surface) Menu() []tray.MenuItem {
	return tray.BuildMenu(s.windowInfos())
}

// post enqueues a message without ever blocking the producer.
func (s *Surface) post(m message) {
	select {
	case s.msgs <- m:
	default:
		s.logger.Warn("dispatcher queue full, dropping message")
	}
}

// acceptLoop receives handoff connections until the listener closes.
func (s *Surface) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.logger.Warn("accept failed", "error", err)
			return
		}
		go s.readHandoff(conn)
	}
}

// readHandoff drains one connection and posts the decoded launch request.
// Malformed payloads are logged and dropped; the sender gets no reply either
// way.
func (s *Surface) readHandoff(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	data, err := io.ReadAll(io.LimitReader(conn, handoff.MaxPayloadSize+1))
	if err != nil {
		s.logger.Warn("handoff read failed", "error", err)
		return
	}

	req, err := handoff.Decode(data)
	if err != nil {
		s.logger.Warn("dropping malformed handoff payload",
			"bytes", len(data), "error", err)
		return
	}

	s.post(msgHandoff{req: req})
}

// dispatchLoop is the dispatcher goroutine. Window hosts and OS shell
// integrations are thread-affine, so it pins its OS thread.
func (s *Surface) dispatchLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.doneCh)

	for {
		select {
		case m := <-s.msgs:
			s.dispatch(m)
		case <-s.stopCh:
			return
		}
	}
}

// dispatch routes one message under a recover barrier: a panicking handler
// is logged and the loop keeps running.
func (s *Surface) dispatch(m message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("message handler panicked",
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch m := m.(type) {
	case msgHandoff:
		s.handleHandoff(m.req)
	case msgHotkey:
		s.handleHotkey(m.slot)
	case msgTraySelect:
		s.handleTraySelect()
	case msgTrayMenu:
		s.manager.SummonByID(m.windowID)
	case msgThemeChanged:
		s.handleThemeChanged(m.dark)
	case msgShellRestarted:
		s.tray.HandleShellRestarted()
	case msgSettingsChanged:
		s.handleSettingsChanged()
	case msgRecomputeTray:
		s.tray.Recompute(s.logic.RequestsTrayIcon(), s.windowInfos())
	default:
		s.logger.Warn("unknown dispatcher message")
	}
}

// handleHandoff turns a received launch request into a window request.
func (s *Surface) handleHandoff(req *handoff.LaunchRequest) {
	s.logger.Info("handoff received",
		"args", len(req.Args), "dir", req.Dir, "show", req.Show)
	s.bus.Publish(event.NewHandoffReceivedEvent(len(req.Args), req.Dir))
	s.manager.RequestNewWindow(window.Request{Args: req.Args, Show: req.Show})
}

// handleHotkey resolves a slot to its summon behavior. A named target with
// no live match spawns a new window under that name; an unnamed summon with
// no windows at all spawns a default one.
func (s *Surface) handleHotkey(slot int) {
	args, ok := s.registry.Dispatch(slot)
	if !ok {
		return
	}
	s.bus.Publish(event.NewHotkeyPressedEvent(slot, s.registry.ChordAt(slot)))

	if args.WindowName != "" && !s.haveWindowNamed(args.WindowName) {
		s.manager.RequestNewWindow(window.Request{
			Args: []string{"perch", "-w", args.WindowName},
		})
		return
	}
	if args.WindowName == "" && s.manager.RemainingWindowCount() == 0 {
		s.manager.RequestNewWindow(window.Request{Args: []string{"perch"}})
		return
	}

	s.manager.SummonWindow(args)
}

// handleTraySelect summons the most recently used window, spawning one when
// none is open.
func (s *Surface) handleTraySelect() {
	if s.manager.RemainingWindowCount() == 0 {
		s.manager.RequestNewWindow(window.Request{Args: []string{"perch"}})
		return
	}
	s.manager.SummonWindow(app.SummonArgs{})
}

// handleThemeChanged publishes only actual dark/light transitions.
func (s *Surface) handleThemeChanged(dark bool) {
	if dark == s.dark {
		return
	}
	s.dark = dark
	s.logger.Info("theme changed", "dark", dark)
	s.bus.Publish(event.NewThemeChangedEvent(dark))
}

// handleSettingsChanged reloads settings and reapplies every window-
// independent resource: hotkey bindings and tray state.
func (s *Surface) handleSettingsChanged() {
	if err := s.logic.ReloadSettings(); err != nil {
		s.logger.Error("settings reload failed", "error", err)
		// Stale settings still need resources consistent with them.
	}

	s.registry.Rebind(s.logic.GlobalHotkeys())
	s.tray.Recompute(s.logic.RequestsTrayIcon(), s.windowInfos())
}

// haveWindowNamed reports whether a live window carries the given title.
func (s *Surface) haveWindowNamed(name string) bool {
	for _, w := range s.manager.Snapshot() {
		if w.Title == name {
			return true
		}
	}
	return false
}

// windowInfos projects the live window set for the tray controller.
func (s *Surface) windowInfos() []tray.WindowInfo {
	snap := s.manager.Snapshot()
	infos := make([]tray.WindowInfo, len(snap))
	for i, w := range snap {
		infos[i] = tray.WindowInfo{ID: w.ID, Title: w.Title, Quake: w.Quake}
	}
	return infos
}
