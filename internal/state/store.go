// Package state persists application state that outlives any single window:
// the window layouts restored on next launch and the per-window buffer files
// they reference. The store flushes before process exit and cleans up buffer
// files orphaned by layouts that are no longer persisted.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/perch-term/perch/internal/logging"
)

const (
	stateFileName = "state.yaml"

	bufferPrefix = "buffer_"
	bufferSuffix = ".txt"
)

// bufferGlob matches candidate buffer file names; the session ID between
// prefix and suffix is validated separately.
var bufferGlob = glob.MustCompile(bufferPrefix + "*" + bufferSuffix)

// WindowLayout is one persisted window's restore descriptor. SessionID names
// the buffer file holding the window's scrollback.
type WindowLayout struct {
	SessionID string `yaml:"session_id"`
	Name      string `yaml:"name,omitempty"`
	Title     string `yaml:"title,omitempty"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Maximized bool   `yaml:"maximized,omitempty"`
}

// persistedState is the serializable representation of the store.
type persistedState struct {
	WindowLayouts []WindowLayout `yaml:"window_layouts"`
}

// Store holds persisted application state for one state directory.
type Store struct {
	dir    string
	logger *logging.Logger

	mu      sync.Mutex
	layouts []WindowLayout

	// hadLayoutsAtStartup pins the cleanup obligation: buffer files from
	// a previous session must be swept even if persistence was disabled
	// in the meantime.
	hadLayoutsAtStartup bool
}

// NewStore opens the store rooted at dir, creating the directory and loading
// any previously persisted state. A missing state file is an empty store,
// not an error.
func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.WithComponent("state"),
	}

	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var persisted persistedState
	if err := yaml.Unmarshal(data, &persisted); err != nil {
		return nil, fmt.Errorf("unmarshal state file: %w", err)
	}

	s.layouts = persisted.WindowLayouts
	s.hadLayoutsAtStartup = len(persisted.WindowLayouts) > 0
	return s, nil
}

func (s *Store) statePath() string {
	return filepath.Join(s.dir, stateFileName)
}

// Dir returns the state directory.
func (s *Store) Dir() string {
	return s.dir
}

// NewSessionID mints the identity tying a window layout to its buffer file.
func NewSessionID() string {
	return uuid.NewString()
}

// BufferFilePath returns the buffer file path for a session ID.
func (s *Store) BufferFilePath(sessionID string) string {
	return filepath.Join(s.dir, bufferPrefix+sessionID+bufferSuffix)
}

// PersistedWindowLayouts returns a copy of the current layouts.
func (s *Store) PersistedWindowLayouts() []WindowLayout {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WindowLayout, len(s.layouts))
	copy(out, s.layouts)
	return out
}

// SetPersistedWindowLayouts replaces the layout set. The new set is not
// durable until Flush.
func (s *Store) SetPersistedWindowLayouts(layouts []WindowLayout) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layouts = make([]WindowLayout, len(layouts))
	copy(s.layouts, layouts)
}

// Flush writes the current state to disk. The write is atomic: data goes to
// a temporary file first, then renames into place. Must run before process
// termination.
func (s *Store) Flush() error {
	s.mu.Lock()
	data, err := yaml.Marshal(persistedState{WindowLayouts: s.layouts})
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	target := s.statePath()
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.Debug("state flushed", "path", target)
	return nil
}

// CleanupRequired reports whether buffer-file cleanup must run at shutdown.
// The obligation is fixed at startup: a previous session that persisted
// layouts may have left buffer files behind.
func (s *Store) CleanupRequired() bool {
	return s.hadLayoutsAtStartup
}

// CleanupBufferFiles removes buffer files whose session ID is not referenced
// by any current layout. Files that merely resemble buffer files but do not
// carry a valid session ID are left alone.
func (s *Store) CleanupBufferFiles() error {
	referenced := make(map[string]bool)
	s.mu.Lock()
	for _, l := range s.layouts {
		referenced[l.SessionID] = true
	}
	s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read state dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !bufferGlob.Match(name) {
			continue
		}

		sessionID := strings.TrimSuffix(strings.TrimPrefix(name, bufferPrefix), bufferSuffix)
		if _, err := uuid.Parse(sessionID); err != nil {
			continue
		}
		if referenced[sessionID] {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("failed to remove orphaned buffer file",
				"file", name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("removed orphaned buffer files", "count", removed)
	}
	return nil
}
