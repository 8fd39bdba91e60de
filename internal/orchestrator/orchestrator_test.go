package orchestrator

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/coordinator"
	"github.com/perch-term/perch/internal/handoff"
	"github.com/perch-term/perch/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Instance.Variant = "test"
	cfg.Instance.RetryInitialMs = 5
	cfg.Instance.RetryBudgetMs = 200
	cfg.State.Dir = t.TempDir()
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) (*Orchestrator, string) {
	t.Helper()
	runtimeDir := t.TempDir()
	o := New(cfg, logging.NopLogger(),
		WithRuntimeDir(runtimeDir),
		WithConfigWatcher(false))
	return o, runtimeDir
}

func TestOrchestrator_RunAndSignalShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Window.AllowHeadless = true
	o, _ := newTestOrchestrator(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		code int
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		code, err := o.Run(ctx, []string{"perch"}, handoff.ShowNormal)
		done <- outcome{code, err}
	}()

	// Give the owner time to create its surface, then ask it to stop.
	waitForSocket(t, filepath.Join(o.runtimeDir, "perch-test.sock"))
	cancel()

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("Run: %v", out.err)
		}
		if out.code != 0 {
			t.Errorf("Expected exit code 0, got %d", out.code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not shut down")
	}

	// Shutdown must have flushed persisted state.
	if _, err := os.Stat(filepath.Join(cfg.State.Dir, "state.yaml")); err != nil {
		t.Errorf("State file should exist after shutdown: %v", err)
	}
}

func TestOrchestrator_HandedOffLaunchCreatesNoWindow(t *testing.T) {
	cfg := testConfig(t)
	o, runtimeDir := newTestOrchestrator(t, cfg)

	// Simulate an existing owner: hold the lock and serve the socket.
	owner := coordinator.NewCoordinatorAt(cfg.Instance, runtimeDir, logging.NopLogger())
	if result, _ := owner.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != coordinator.Owner {
		t.Fatalf("Expected test harness to own the lock, got %v", result)
	}
	defer owner.Release()

	ln, err := net.Listen("unix", owner.SocketPath())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	code, err := o.Run(context.Background(), []string{"perch"}, handoff.ShowNormal)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("Handed-off launch should exit 0, got %d", code)
	}

	// A handed-off launch never writes state.
	if _, err := os.Stat(filepath.Join(cfg.State.Dir, "state.yaml")); !os.IsNotExist(err) {
		t.Errorf("Handed-off launch should not flush state, stat err: %v", err)
	}
}

func TestOrchestrator_AbortsQuietlyWhenOwnerUnreachable(t *testing.T) {
	cfg := testConfig(t)
	o, runtimeDir := newTestOrchestrator(t, cfg)

	// Hold the lock but never serve the socket.
	owner := coordinator.NewCoordinatorAt(cfg.Instance, runtimeDir, logging.NopLogger())
	if result, _ := owner.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != coordinator.Owner {
		t.Fatalf("Expected test harness to own the lock, got %v", result)
	}
	defer owner.Release()

	code, err := o.Run(context.Background(), []string{"perch"}, handoff.ShowNormal)
	if err != nil {
		t.Fatalf("Run should abort quietly: %v", err)
	}
	if code != 0 {
		t.Errorf("Aborted launch should exit 0, got %d", code)
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for socket %s", path)
}
