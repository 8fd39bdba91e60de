package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/perch-term/perch/internal/event"
	"github.com/perch-term/perch/internal/logging"
)

// debounceDelay coalesces the burst of filesystem events most editors emit
// for a single save into one reload.
const debounceDelay = 50 * time.Millisecond

// Watcher observes the settings file and publishes a ConfigChangedEvent on
// each save. The control surface subscribes and forwards the reload to the
// UI logic host and hotkey registry on its own thread.
type Watcher struct {
	watcher *fsnotify.Watcher
	bus     *event.Bus
	logger  *logging.Logger
	path    string
	stopCh  chan struct{}
}

// NewWatcher creates a Watcher for the given settings file. The file's
// parent directory is watched rather than the file itself, since editors
// that save via rename would otherwise detach the watch.
func NewWatcher(path string, bus *event.Bus, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		watcher: fsw,
		bus:     bus,
		logger:  logger.WithComponent("config"),
		path:    path,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for settings changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

// watchLoop processes filesystem events.
func (w *Watcher) watchLoop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer

	pending := false

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only the settings file matters, and only mutations of it.
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			pending = true
			debounceTimer.Reset(debounceDelay)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false

			w.logger.Debug("settings file changed", "path", w.path)
			w.bus.Publish(event.NewConfigChangedEvent(w.path))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", "error", err)
		}
	}
}
