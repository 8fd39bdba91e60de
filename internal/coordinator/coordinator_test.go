package coordinator

import (
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/handoff"
	"github.com/perch-term/perch/internal/logging"
)

func testInstanceConfig() config.InstanceConfig {
	return config.InstanceConfig{
		Variant:          "test",
		HandoffTimeoutMs: 500,
		RetryInitialMs:   5,
		RetryGrowth:      1.5,
		RetryCapMs:       50,
		RetryBudgetMs:    300,
	}
}

func TestCoordinator_IsolatedMode(t *testing.T) {
	cfg := testInstanceConfig()
	cfg.Isolated = true
	c := NewCoordinatorAt(cfg, t.TempDir(), logging.NopLogger())

	result, err := c.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal)
	if err != nil {
		t.Fatalf("AcquireOwnershipOrHandoff: %v", err)
	}
	if result != Owner {
		t.Errorf("Expected Owner, got %v", result)
	}
	// Isolated launches never touch the lock.
	if c.Owned() {
		t.Error("Isolated mode should not hold the instance lock")
	}
}

func TestCoordinator_FreshLockBecomesOwner(t *testing.T) {
	dir := t.TempDir()
	c := NewCoordinatorAt(testInstanceConfig(), dir, logging.NopLogger())

	result, err := c.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal)
	if err != nil {
		t.Fatalf("AcquireOwnershipOrHandoff: %v", err)
	}
	if result != Owner {
		t.Errorf("Expected Owner, got %v", result)
	}
	if !c.Owned() {
		t.Error("Owner should hold the instance lock")
	}
	if _, err := os.Stat(c.LockPath()); err != nil {
		t.Errorf("Lock file should exist: %v", err)
	}

	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestCoordinator_HandsOffToExistingOwner(t *testing.T) {
	dir := t.TempDir()
	owner := NewCoordinatorAt(testInstanceConfig(), dir, logging.NopLogger())

	if result, _ := owner.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != Owner {
		t.Fatalf("Expected first process to be Owner, got %v", result)
	}
	defer owner.Release()

	// Stand in for the owner's control surface.
	ln, err := net.Listen("unix", owner.SocketPath())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	second := NewCoordinatorAt(testInstanceConfig(), dir, logging.NopLogger())
	result, err := second.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowMinimized)
	if err != nil {
		t.Fatalf("AcquireOwnershipOrHandoff: %v", err)
	}
	if result != HandedOff {
		t.Fatalf("Expected HandedOff, got %v", result)
	}
	if second.Owned() {
		t.Error("A handed-off process should not hold the lock")
	}

	select {
	case data := <-received:
		req, err := handoff.Decode(data)
		if err != nil {
			t.Fatalf("Owner received malformed payload: %v", err)
		}
		if req.Show != handoff.ShowMinimized {
			t.Errorf("Expected show command %d, got %d", handoff.ShowMinimized, req.Show)
		}
		wd, _ := os.Getwd()
		if req.Dir != wd {
			t.Errorf("Expected working dir %q, got %q", wd, req.Dir)
		}
		if len(req.Args) == 0 {
			t.Error("Handoff should carry the launching argv")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Owner never received the handoff")
	}
}

func TestCoordinator_AbortsWhenOwnerUnreachable(t *testing.T) {
	dir := t.TempDir()
	owner := NewCoordinatorAt(testInstanceConfig(), dir, logging.NopLogger())

	if result, _ := owner.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != Owner {
		t.Fatalf("Expected first process to be Owner, got %v", result)
	}
	defer owner.Release()

	// No surface socket exists; the second process must retry until the
	// budget runs out, then give up quietly.
	second := NewCoordinatorAt(testInstanceConfig(), dir, logging.NopLogger())
	start := time.Now()
	result, err := second.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal)
	if err != nil {
		t.Fatalf("AcquireOwnershipOrHandoff: %v", err)
	}
	if result != Aborted {
		t.Errorf("Expected Aborted, got %v", result)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Abort should come after the retry budget, got %v", elapsed)
	}
}

func TestCoordinator_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	owner := NewCoordinatorAt(testInstanceConfig(), dir, logging.NopLogger())

	if result, _ := owner.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != Owner {
		t.Fatalf("Expected first process to be Owner, got %v", result)
	}
	defer owner.Release()

	cfg := testInstanceConfig()
	cfg.RetryBudgetMs = 60000
	second := NewCoordinatorAt(cfg, dir, logging.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := second.AcquireOwnershipOrHandoff(ctx, handoff.ShowNormal)
	if err == nil {
		t.Error("Expected a context error")
	}
	if result != Aborted {
		t.Errorf("Expected Aborted, got %v", result)
	}
}

func TestCoordinator_VariantKeyedPaths(t *testing.T) {
	dir := t.TempDir()
	release := testInstanceConfig()
	preview := testInstanceConfig()
	preview.Variant = "preview"

	a := NewCoordinatorAt(release, dir, logging.NopLogger())
	b := NewCoordinatorAt(preview, dir, logging.NopLogger())

	if a.LockPath() == b.LockPath() {
		t.Error("Different variants must use different lock paths")
	}
	if a.SocketPath() == b.SocketPath() {
		t.Error("Different variants must use different socket paths")
	}

	// Two variants can both be owners simultaneously.
	if result, _ := a.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != Owner {
		t.Errorf("Expected release variant to own, got %v", result)
	}
	defer a.Release()
	if result, _ := b.AcquireOwnershipOrHandoff(context.Background(), handoff.ShowNormal); result != Owner {
		t.Errorf("Expected preview variant to own, got %v", result)
	}
	defer b.Release()
}

func TestResult_String(t *testing.T) {
	tests := []struct {
		result Result
		want   string
	}{
		{Owner, "owner"},
		{HandedOff, "handed_off"},
		{Aborted, "aborted"},
		{Result(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("Result(%d).String() = %q, want %q", tt.result, got, tt.want)
		}
	}
}
