package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Perch configuration
type Config struct {
	Instance InstanceConfig `mapstructure:"instance"`
	Window   WindowConfig   `mapstructure:"window"`
	Tray     TrayConfig     `mapstructure:"tray"`
	Hotkeys  []HotkeyConfig `mapstructure:"hotkeys"`
	State    StateConfig    `mapstructure:"state"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InstanceConfig controls single-instance coordination between processes
type InstanceConfig struct {
	// Variant keys the instance lock and control surface socket so that
	// different builds (e.g. "release", "preview", "dev") coexist without
	// handing off to each other
	Variant string `mapstructure:"variant"`
	// Isolated bypasses instance coordination entirely: every launch
	// becomes its own owner and never hands off
	Isolated bool `mapstructure:"isolated"`
	// HandoffTimeoutMs bounds a single handoff send to the owner (default: 10000)
	HandoffTimeoutMs int `mapstructure:"handoff_timeout_ms"`
	// RetryInitialMs is the first backoff delay when the owner's control
	// surface is not reachable yet (default: 50)
	RetryInitialMs int `mapstructure:"retry_initial_ms"`
	// RetryGrowth is the backoff multiplier applied per attempt (default: 1.5)
	RetryGrowth float64 `mapstructure:"retry_growth"`
	// RetryCapMs caps a single backoff delay (default: 10000)
	RetryCapMs int `mapstructure:"retry_cap_ms"`
	// RetryBudgetMs is the total time spent retrying before giving up and
	// exiting quietly (default: 30000)
	RetryBudgetMs int `mapstructure:"retry_budget_ms"`
}

// WindowConfig controls window lifecycle behavior
type WindowConfig struct {
	// AllowHeadless keeps the process resident after the last window
	// closes (tray-resident mode) instead of exiting (default: false)
	AllowHeadless bool `mapstructure:"allow_headless"`
	// Refrigeration controls whether closed windows park their execution
	// context for reuse. Options: "auto", "on", "off" (default: "auto")
	Refrigeration string `mapstructure:"refrigeration"`
	// InitialShow is the show hint for the first window when none is
	// carried by the launch request. Options: "normal", "minimized",
	// "maximized" (default: "normal")
	InitialShow string `mapstructure:"initial_show"`
}

// TrayConfig controls the notification icon
type TrayConfig struct {
	// AlwaysShow forces the tray icon to exist regardless of window state
	AlwaysShow bool `mapstructure:"always_show"`
	// MinimizeToTray hides windows to the tray instead of the taskbar
	MinimizeToTray bool `mapstructure:"minimize_to_tray"`
}

// HotkeyConfig describes one global hotkey binding. The binding list is
// rebuilt from scratch on every configuration change.
type HotkeyConfig struct {
	// Chord is the key combination, e.g. "win+ctrl+grave"
	Chord string `mapstructure:"chord"`
	// Window names the target window; empty targets the most recently used
	Window string `mapstructure:"window"`
	// Monitor controls where the summoned window lands.
	// Options: "in_place", "to_current", "to_mouse" (default: "in_place")
	Monitor string `mapstructure:"monitor"`
	// Desktop controls virtual-desktop movement.
	// Options: "in_place", "to_current" (default: "in_place")
	Desktop string `mapstructure:"desktop"`
	// ToggleVisibility hides the window if it is already foreground (default: true)
	ToggleVisibility bool `mapstructure:"toggle_visibility"`
	// DropdownDurationMs animates quake-style windows over this duration, 0 = instant
	DropdownDurationMs int `mapstructure:"dropdown_duration_ms"`
}

// StateConfig controls where Perch persists window layouts and buffer files
type StateConfig struct {
	// Dir is the data directory. If empty, defaults to the XDG data dir
	// (~/.local/share/perch). Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Instance: InstanceConfig{
			Variant:          "release",
			Isolated:         false,
			HandoffTimeoutMs: 10000,
			RetryInitialMs:   50,
			RetryGrowth:      1.5,
			RetryCapMs:       10000,
			RetryBudgetMs:    30000,
		},
		Window: WindowConfig{
			AllowHeadless: false,
			Refrigeration: "auto",
			InitialShow:   "normal",
		},
		Tray: TrayConfig{
			AlwaysShow:     false,
			MinimizeToTray: false,
		},
		Hotkeys: []HotkeyConfig{},
		State: StateConfig{
			Dir: "", // Empty means use the XDG data dir
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// HandoffTimeout returns the handoff send timeout as a time.Duration
func (c *InstanceConfig) HandoffTimeout() time.Duration {
	return time.Duration(c.HandoffTimeoutMs) * time.Millisecond
}

// RetryInitial returns the initial backoff delay as a time.Duration
func (c *InstanceConfig) RetryInitial() time.Duration {
	return time.Duration(c.RetryInitialMs) * time.Millisecond
}

// RetryCap returns the backoff delay cap as a time.Duration
func (c *InstanceConfig) RetryCap() time.Duration {
	return time.Duration(c.RetryCapMs) * time.Millisecond
}

// RetryBudget returns the total retry budget as a time.Duration
func (c *InstanceConfig) RetryBudget() time.Duration {
	return time.Duration(c.RetryBudgetMs) * time.Millisecond
}

// DropdownDuration returns the dropdown animation duration (0 means instant)
func (h *HotkeyConfig) DropdownDuration() time.Duration {
	return time.Duration(h.DropdownDurationMs) * time.Millisecond
}

// ResolveDir returns the resolved state directory path.
// If Dir is empty, it returns the XDG data directory for Perch.
// If Dir starts with ~, it expands to the user's home directory.
func (s *StateConfig) ResolveDir() string {
	if s.Dir == "" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "perch")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return ".perch"
		}
		return filepath.Join(home, ".local", "share", "perch")
	}

	path := s.Dir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Instance defaults
	viper.SetDefault("instance.variant", defaults.Instance.Variant)
	viper.SetDefault("instance.isolated", defaults.Instance.Isolated)
	viper.SetDefault("instance.handoff_timeout_ms", defaults.Instance.HandoffTimeoutMs)
	viper.SetDefault("instance.retry_initial_ms", defaults.Instance.RetryInitialMs)
	viper.SetDefault("instance.retry_growth", defaults.Instance.RetryGrowth)
	viper.SetDefault("instance.retry_cap_ms", defaults.Instance.RetryCapMs)
	viper.SetDefault("instance.retry_budget_ms", defaults.Instance.RetryBudgetMs)

	// Window defaults
	viper.SetDefault("window.allow_headless", defaults.Window.AllowHeadless)
	viper.SetDefault("window.refrigeration", defaults.Window.Refrigeration)
	viper.SetDefault("window.initial_show", defaults.Window.InitialShow)

	// Tray defaults
	viper.SetDefault("tray.always_show", defaults.Tray.AlwaysShow)
	viper.SetDefault("tray.minimize_to_tray", defaults.Tray.MinimizeToTray)

	// Hotkey defaults
	viper.SetDefault("hotkeys", defaults.Hotkeys)

	// State defaults
	viper.SetDefault("state.dir", defaults.State.Dir)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "perch")
	}
	// Fall back to ~/.config/perch
	home, err := os.UserHomeDir()
	if err != nil {
		return ".perch"
	}
	return filepath.Join(home, ".config", "perch")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
