package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/perch-term/perch/internal/event"
	"github.com/perch-term/perch/internal/logging"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Instance.Variant != "release" {
		t.Errorf("Expected variant 'release', got %q", cfg.Instance.Variant)
	}
	if cfg.Instance.Isolated {
		t.Error("Isolated mode should be off by default")
	}
	if cfg.Window.AllowHeadless {
		t.Error("AllowHeadless should be off by default")
	}
	if cfg.Window.Refrigeration != "auto" {
		t.Errorf("Expected refrigeration 'auto', got %q", cfg.Window.Refrigeration)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level 'info', got %q", cfg.Logging.Level)
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Instance.HandoffTimeout(); got != 10*time.Second {
		t.Errorf("Expected handoff timeout 10s, got %v", got)
	}
	if got := cfg.Instance.RetryInitial(); got != 50*time.Millisecond {
		t.Errorf("Expected initial retry 50ms, got %v", got)
	}
	if got := cfg.Instance.RetryCap(); got != 10*time.Second {
		t.Errorf("Expected retry cap 10s, got %v", got)
	}
	if got := cfg.Instance.RetryBudget(); got != 30*time.Second {
		t.Errorf("Expected retry budget 30s, got %v", got)
	}

	hk := HotkeyConfig{DropdownDurationMs: 200}
	if got := hk.DropdownDuration(); got != 200*time.Millisecond {
		t.Errorf("Expected dropdown duration 200ms, got %v", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.Variant != "release" {
		t.Errorf("Expected variant 'release', got %q", cfg.Instance.Variant)
	}
	if cfg.Instance.RetryGrowth != 1.5 {
		t.Errorf("Expected retry growth 1.5, got %v", cfg.Instance.RetryGrowth)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
instance:
  variant: preview
  isolated: true
window:
  allow_headless: true
tray:
  always_show: true
hotkeys:
  - chord: win+ctrl+grave
    window: _quake
    monitor: to_mouse
    toggle_visibility: true
    dropdown_duration_ms: 200
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	SetDefaults()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.Variant != "preview" {
		t.Errorf("Expected variant 'preview', got %q", cfg.Instance.Variant)
	}
	if !cfg.Instance.Isolated {
		t.Error("Expected isolated mode on")
	}
	if !cfg.Window.AllowHeadless {
		t.Error("Expected allow_headless on")
	}
	if !cfg.Tray.AlwaysShow {
		t.Error("Expected tray.always_show on")
	}

	if len(cfg.Hotkeys) != 1 {
		t.Fatalf("Expected 1 hotkey, got %d", len(cfg.Hotkeys))
	}
	hk := cfg.Hotkeys[0]
	if hk.Chord != "win+ctrl+grave" {
		t.Errorf("Expected chord 'win+ctrl+grave', got %q", hk.Chord)
	}
	if hk.Window != "_quake" {
		t.Errorf("Expected window '_quake', got %q", hk.Window)
	}
	if hk.Monitor != "to_mouse" {
		t.Errorf("Expected monitor 'to_mouse', got %q", hk.Monitor)
	}

	// Defaults still apply to sections the file omits.
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	viper.Set("window.refrigeration", "sometimes")

	if _, err := Load(); err == nil {
		t.Error("Load should fail for an invalid refrigeration mode")
	}
}

func TestResolveDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("No home directory: %v", err)
	}

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"explicit absolute", "/var/lib/perch", "/var/lib/perch"},
		{"tilde expansion", "~/perch-data", filepath.Join(home, "perch-data")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StateConfig{Dir: tt.dir}
			if got := s.ResolveDir(); got != tt.want {
				t.Errorf("ResolveDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveDir_XDGDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	s := StateConfig{}
	want := "/tmp/xdg-data/perch"
	if got := s.ResolveDir(); got != want {
		t.Errorf("ResolveDir() = %q, want %q", got, want)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	want := "/tmp/xdg-config/perch"
	if got := ConfigDir(); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
	if got := ConfigFile(); got != filepath.Join(want, "config.yaml") {
		t.Errorf("ConfigFile() = %q", got)
	}
}

func TestWatcher_PublishesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("window:\n  allow_headless: false\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	bus := event.NewBus()
	changed := make(chan event.Event, 1)
	bus.Subscribe("config.changed", func(e event.Event) {
		select {
		case changed <- e:
		default:
		}
	})

	w, err := NewWatcher(path, bus, logging.NopLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()
	w.Start()

	// Give the watch loop a moment to come up, then modify the file.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("window:\n  allow_headless: true\n"), 0644); err != nil {
		t.Fatalf("Failed to modify config file: %v", err)
	}

	select {
	case e := <-changed:
		ev, ok := e.(event.ConfigChangedEvent)
		if !ok {
			t.Fatalf("Expected ConfigChangedEvent, got %T", e)
		}
		if filepath.Clean(ev.Path) != filepath.Clean(path) {
			t.Errorf("Expected path %q, got %q", path, ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for config.changed event")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	bus := event.NewBus()
	fired := make(chan struct{}, 1)
	bus.Subscribe("config.changed", func(e event.Event) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	w, err := NewWatcher(path, bus, logging.NopLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()
	w.Start()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise"), 0644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	select {
	case <-fired:
		t.Error("Watcher should not publish for unrelated files")
	case <-time.After(300 * time.Millisecond):
	}
}
