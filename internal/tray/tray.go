// Package tray decides whether the process-wide notification icon exists
// and toggles it idempotently. The icon is a projection of aggregate window
// state plus configuration, recomputed on every event that could change
// either; recomputation that lands on the current state performs no OS call.
package tray

import (
	"github.com/perch-term/perch/internal/logging"
)

// WindowInfo is the slice of per-window state the tray cares about.
type WindowInfo struct {
	ID    uint64
	Title string
	Quake bool
}

// Shell is the OS-level icon surface. AddIcon and RemoveIcon are not
// idempotent at the OS level; the Controller guarantees it never issues a
// redundant call.
type Shell interface {
	AddIcon() error
	RemoveIcon() error
}

// Controller owns the single boolean "is shown". All methods must be called
// from the control surface dispatcher goroutine, so no locking is needed.
type Controller struct {
	shell  Shell
	logger *logging.Logger

	shown bool

	// onSummonAll re-summons every live window when the icon is removed,
	// so windows hidden in reliance on tray presence are not stranded
	// invisible.
	onSummonAll func()
}

// NewController creates a Controller over the given shell surface.
func NewController(shell Shell, onSummonAll func(), logger *logging.Logger) *Controller {
	return &Controller{
		shell:       shell,
		onSummonAll: onSummonAll,
		logger:      logger.WithComponent("tray"),
	}
}

// Recompute derives whether the icon should exist and issues at most one OS
// call to converge. Needed = alwaysShown OR any window in quake mode.
func (c *Controller) Recompute(alwaysShown bool, windows []WindowInfo) {
	needed := alwaysShown
	if !needed {
		for _, w := range windows {
			if w.Quake {
				needed = true
				break
			}
		}
	}

	if needed == c.shown {
		return
	}

	if needed {
		if err := c.shell.AddIcon(); err != nil {
			c.logger.Warn("failed to add tray icon", "error", err)
			return
		}
		c.shown = true
		c.logger.Debug("tray icon added")
		return
	}

	if err := c.shell.RemoveIcon(); err != nil {
		c.logger.Warn("failed to remove tray icon", "error", err)
		return
	}
	c.shown = false
	c.logger.Debug("tray icon removed")

	// Windows may have been hidden to the tray; bring them back.
	if c.onSummonAll != nil {
		c.onSummonAll()
	}
}

// IsShown reports whether the icon currently exists.
func (c *Controller) IsShown() bool {
	return c.shown
}

// HandleShellRestarted re-adds the icon after the OS shell restarts, which
// destroys every icon without telling its owner.
func (c *Controller) HandleShellRestarted() {
	if !c.shown {
		return
	}
	if err := c.shell.AddIcon(); err != nil {
		c.logger.Warn("failed to re-add tray icon after shell restart", "error", err)
		c.shown = false
		return
	}
	c.logger.Info("tray icon recreated after shell restart")
}
