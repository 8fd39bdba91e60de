// Package internal contains integration tests that verify the packages work
// together correctly: instance election feeding the control surface, handoffs
// becoming windows, and settings changes fanning out to hotkeys and the tray.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/perch-term/perch/internal/app"
	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/coordinator"
	"github.com/perch-term/perch/internal/event"
	"github.com/perch-term/perch/internal/handoff"
	"github.com/perch-term/perch/internal/hotkey"
	"github.com/perch-term/perch/internal/logging"
	"github.com/perch-term/perch/internal/surface"
	"github.com/perch-term/perch/internal/tray"
	"github.com/perch-term/perch/internal/window"
)

type countingRegistrar struct {
	mu         sync.Mutex
	registered map[int]hotkey.Chord
}

func (r *countingRegistrar) Register(slot int, chord hotkey.Chord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered == nil {
		r.registered = make(map[int]hotkey.Chord)
	}
	r.registered[slot] = chord
	return nil
}

func (r *countingRegistrar) Unregister(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registered, slot)
	return nil
}

func (r *countingRegistrar) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

type countingShell struct {
	mu   sync.Mutex
	adds int
}

func (s *countingShell) AddIcon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds++
	return nil
}

func (s *countingShell) RemoveIcon() error { return nil }

func (s *countingShell) addCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// ownerStack is the full owner-side component set wired the way the
// orchestrator wires it.
type ownerStack struct {
	coord     *coordinator.Coordinator
	bus       *event.Bus
	manager   *window.Manager
	registrar *countingRegistrar
	shell     *countingShell
	surface   *surface.Surface
}

func startOwnerStack(t *testing.T, cfg *config.Config, runtimeDir string) *ownerStack {
	t.Helper()
	logger := logging.NopLogger()

	coord := coordinator.NewCoordinatorAt(cfg.Instance, runtimeDir, logger)
	result, err := coord.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal)
	if err != nil {
		t.Fatalf("AcquireOwnershipOrHandoff: %v", err)
	}
	if result != coordinator.Owner {
		t.Fatalf("Expected Owner, got %v", result)
	}
	t.Cleanup(func() { _ = coord.Release() })

	bus := event.NewBus()
	logic := app.NewStdLogic(cfg, logger)
	manager := window.NewManager(logic, window.Policy{Refrigerate: true}, bus, logger)
	registrar := &countingRegistrar{}
	registry := hotkey.NewRegistry(registrar, logger)
	shell := &countingShell{}
	trayCtl := tray.NewController(shell, manager.SummonAll, logger)

	surf, err := surface.New(coord.SocketPath(), logic, manager, registry, trayCtl, bus, logger)
	if err != nil {
		t.Fatalf("surface.New: %v", err)
	}
	surf.Start()
	t.Cleanup(surf.Stop)

	return &ownerStack{
		coord:     coord,
		bus:       bus,
		manager:   manager,
		registrar: registrar,
		shell:     shell,
		surface:   surf,
	}
}

// TestLaunchHandoffIntegration runs the full owner-side stack and verifies
// that a second launch's handoff materializes as a live window.
func TestLaunchHandoffIntegration(t *testing.T) {
	runtimeDir := t.TempDir()

	cfg := config.Default()
	cfg.Instance.Variant = "integration"
	cfg.Instance.RetryInitialMs = 5
	cfg.Instance.RetryBudgetMs = 2000
	cfg.Window.AllowHeadless = true

	stack := startOwnerStack(t, cfg, runtimeDir)

	var mu sync.Mutex
	handoffs := 0
	stack.bus.Subscribe("handoff.received", func(event.Event) {
		mu.Lock()
		handoffs++
		mu.Unlock()
	})

	// A second launch finds the lock held and hands its command line off.
	second := coordinator.NewCoordinatorAt(cfg.Instance, runtimeDir, logging.NopLogger())
	result, err := second.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal)
	if err != nil {
		t.Fatalf("Second AcquireOwnershipOrHandoff: %v", err)
	}
	if result != coordinator.HandedOff {
		t.Fatalf("Expected HandedOff, got %v", result)
	}

	waitFor(t, "handed-off window", func() bool {
		return stack.manager.RemainingWindowCount() == 1
	})

	mu.Lock()
	got := handoffs
	mu.Unlock()
	if got != 1 {
		t.Errorf("Expected 1 handoff.received event, got %d", got)
	}
}

// TestSettingsFanoutIntegration verifies that configured hotkeys reach the
// OS registrar, configured tray state reaches the shell, and a fired hotkey
// for a missing named window spawns it.
func TestSettingsFanoutIntegration(t *testing.T) {
	cfg := config.Default()
	cfg.Instance.Variant = "fanout"
	cfg.Window.AllowHeadless = true
	cfg.Tray.AlwaysShow = true
	cfg.Hotkeys = []config.HotkeyConfig{
		{Chord: "win+ctrl+t", Window: "scratch"},
		{Chord: "win+grave", Window: "_quake", ToggleVisibility: true},
	}

	stack := startOwnerStack(t, cfg, t.TempDir())

	waitFor(t, "hotkey bindings", func() bool { return stack.registrar.count() == 2 })
	waitFor(t, "tray icon", func() bool { return stack.shell.addCount() == 1 })

	stack.surface.NotifyHotkeyPressed(0)
	waitFor(t, "spawned window", func() bool {
		return stack.manager.RemainingWindowCount() == 1
	})
	if snap := stack.manager.Snapshot(); snap[0].Title != "scratch" {
		t.Errorf("Expected spawned window 'scratch', got %q", snap[0].Title)
	}
}

// TestZeroCountShutdownIntegration verifies the exit policy end to end:
// with headless residency disallowed, closing the last window fires exactly
// one shutdown signal.
func TestZeroCountShutdownIntegration(t *testing.T) {
	logger := logging.NopLogger()

	cfg := config.Default() // AllowHeadless and AlwaysShow both false
	bus := event.NewBus()
	logic := app.NewStdLogic(cfg, logger)
	manager := window.NewManager(logic, window.Policy{Refrigerate: true}, bus, logger)

	var mu sync.Mutex
	signals := 0
	bus.Subscribe("shutdown.requested", func(event.Event) {
		mu.Lock()
		signals++
		mu.Unlock()
	})

	manager.RequestNewWindow(window.Request{Args: []string{"perch"}})
	waitFor(t, "window", func() bool { return manager.RemainingWindowCount() == 1 })

	manager.OnWindowRemoved(manager.Snapshot()[0].ID)

	select {
	case <-manager.ShutdownSignal():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a shutdown signal")
	}

	mu.Lock()
	defer mu.Unlock()
	if signals != 1 {
		t.Errorf("Expected exactly 1 shutdown event, got %d", signals)
	}
}
