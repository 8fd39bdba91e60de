// Package coordinator elects a single owning process per build variant and
// hands launches off to it. Election uses an exclusive advisory file lock;
// the handoff travels over the owner's Unix domain control socket. Both
// paths are keyed by the variant string so different builds coexist without
// handing off to each other.
package coordinator

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/errors"
	"github.com/perch-term/perch/internal/handoff"
	"github.com/perch-term/perch/internal/logging"
)

// Result is the outcome of the instance election.
type Result int

const (
	// Owner means this process won the election and must create the
	// control surface.
	Owner Result = iota
	// HandedOff means the launch was delivered to an existing owner and
	// this process should exit without creating any window.
	HandedOff
	// Aborted means the owner could not be reached within the retry
	// budget. Dedup is best effort; the process exits quietly.
	Aborted
)

// String returns a human-readable name for a result.
func (r Result) String() string {
	switch r {
	case Owner:
		return "owner"
	case HandedOff:
		return "handed_off"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// RuntimeDir returns the directory holding the per-variant lock and socket.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// Coordinator performs the election for one build variant.
type Coordinator struct {
	cfg    config.InstanceConfig
	dir    string
	lock   *FileLock
	logger *logging.Logger
}

// NewCoordinator creates a Coordinator using the standard runtime directory.
func NewCoordinator(cfg config.InstanceConfig, logger *logging.Logger) *Coordinator {
	return NewCoordinatorAt(cfg, RuntimeDir(), logger)
}

// NewCoordinatorAt creates a Coordinator rooted at an explicit directory.
func NewCoordinatorAt(cfg config.InstanceConfig, dir string, logger *logging.Logger) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		dir:    dir,
		logger: logger.WithComponent("coordinator"),
	}
	c.lock = NewFileLock(c.LockPath())
	return c
}

// LockPath returns the election lock file path for this variant.
func (c *Coordinator) LockPath() string {
	return filepath.Join(c.dir, fmt.Sprintf("perch-%s.lock", c.cfg.Variant))
}

// SocketPath returns the control surface socket path for this variant.
func (c *Coordinator) SocketPath() string {
	return filepath.Join(c.dir, fmt.Sprintf("perch-%s.sock", c.cfg.Variant))
}

// AcquireOwnershipOrHandoff runs the election. On Owner the lock stays held
// for the life of the process. On contention the current process's launch
// request is serialized and sent to the owner's control surface; if the
// surface is not reachable yet the send is retried with exponential backoff
// until the budget runs out.
func (c *Coordinator) AcquireOwnershipOrHandoff(ctx context.Context, show uint32) (Result, error) {
	if c.cfg.Isolated {
		c.logger.Info("isolated mode, skipping instance coordination")
		return Owner, nil
	}

	req, err := handoff.CurrentLaunchRequest(show)
	if err != nil {
		return Aborted, errors.Wrap(err, "building launch request")
	}
	payload := handoff.Encode(req)

	deadline := time.Now().Add(c.cfg.RetryBudget())
	delay := c.cfg.RetryInitial()

	for {
		acquired, err := c.lock.TryLock()
		if err != nil {
			return Aborted, errors.Wrap(err, "acquiring instance lock")
		}
		if acquired {
			c.logger.Info("instance lock acquired", "variant", c.cfg.Variant)
			return Owner, nil
		}

		// Another process owns the lock. Deliver our launch to it.
		if err := c.sendHandoff(payload); err == nil {
			c.logger.Info("launch handed off to owner", "variant", c.cfg.Variant)
			return HandedOff, nil
		} else {
			// The owner may still be starting up and has not
			// created its surface yet. Transient: back off, retry.
			c.logger.Debug("handoff attempt failed", "error", err)
		}

		if time.Now().After(deadline) {
			c.logger.Warn("retry budget exhausted, aborting launch",
				"budget_ms", c.cfg.RetryBudgetMs)
			return Aborted, nil
		}

		select {
		case <-ctx.Done():
			return Aborted, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * c.cfg.RetryGrowth)
		if ceiling := c.cfg.RetryCap(); delay > ceiling {
			delay = ceiling
		}
	}
}

// sendHandoff delivers one serialized launch request to the owner's control
// surface. The send is one-shot and ack-less, bounded by the handoff timeout
// so a hung owner cannot block this process indefinitely.
func (c *Coordinator) sendHandoff(payload []byte) error {
	timeout := c.cfg.HandoffTimeout()

	conn, err := net.DialTimeout("unix", c.SocketPath(), timeout)
	if err != nil {
		return errors.Wrap(errors.ErrSurfaceUnavailable, err.Error())
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return errors.Wrap(errors.ErrHandoffRejected, err.Error())
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.Wrap(errors.ErrHandoffRejected, err.Error())
	}
	return nil
}

// Release gives up ownership. Only meaningful in tests; a real owner holds
// the lock until process exit.
func (c *Coordinator) Release() error {
	return c.lock.Unlock()
}

// Owned reports whether this coordinator currently holds the instance lock.
func (c *Coordinator) Owned() bool {
	return c.lock.Held()
}
