package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "instance.retry_growth")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// variantRegex validates the instance variant key. The variant becomes part
// of the lock-file and socket names, so it must stay path-safe.
var variantRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidRefrigerationModes returns the list of valid refrigeration modes
func ValidRefrigerationModes() []string {
	return []string{"auto", "on", "off"}
}

// ValidShowModes returns the list of valid initial show modes
func ValidShowModes() []string {
	return []string{"normal", "minimized", "maximized"}
}

// ValidMonitorBehaviors returns the list of valid hotkey monitor behaviors
func ValidMonitorBehaviors() []string {
	return []string{"in_place", "to_current", "to_mouse"}
}

// ValidDesktopBehaviors returns the list of valid hotkey desktop behaviors
func ValidDesktopBehaviors() []string {
	return []string{"in_place", "to_current"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateInstance()...)
	errors = append(errors, c.validateWindow()...)
	errors = append(errors, c.validateHotkeys()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateInstance validates the InstanceConfig
func (c *Config) validateInstance() []ValidationError {
	var errors []ValidationError

	if c.Instance.Variant != "" && !variantRegex.MatchString(c.Instance.Variant) {
		errors = append(errors, ValidationError{
			Field:   "instance.variant",
			Value:   c.Instance.Variant,
			Message: "must start with a lowercase letter and contain only lowercase letters, digits, and hyphens",
		})
	}

	if c.Instance.HandoffTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "instance.handoff_timeout_ms",
			Value:   c.Instance.HandoffTimeoutMs,
			Message: "must be positive",
		})
	}

	if c.Instance.RetryInitialMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "instance.retry_initial_ms",
			Value:   c.Instance.RetryInitialMs,
			Message: "must be positive",
		})
	}

	if c.Instance.RetryGrowth < 1.0 {
		errors = append(errors, ValidationError{
			Field:   "instance.retry_growth",
			Value:   c.Instance.RetryGrowth,
			Message: "must be at least 1.0",
		})
	}

	if c.Instance.RetryCapMs < c.Instance.RetryInitialMs {
		errors = append(errors, ValidationError{
			Field:   "instance.retry_cap_ms",
			Value:   c.Instance.RetryCapMs,
			Message: "must not be smaller than retry_initial_ms",
		})
	}

	if c.Instance.RetryBudgetMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "instance.retry_budget_ms",
			Value:   c.Instance.RetryBudgetMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validateWindow validates the WindowConfig
func (c *Config) validateWindow() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidRefrigerationModes(), c.Window.Refrigeration) {
		errors = append(errors, ValidationError{
			Field:   "window.refrigeration",
			Value:   c.Window.Refrigeration,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidRefrigerationModes(), ", ")),
		})
	}

	if !slices.Contains(ValidShowModes(), c.Window.InitialShow) {
		errors = append(errors, ValidationError{
			Field:   "window.initial_show",
			Value:   c.Window.InitialShow,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidShowModes(), ", ")),
		})
	}

	return errors
}

// validateHotkeys validates every HotkeyConfig entry
func (c *Config) validateHotkeys() []ValidationError {
	var errors []ValidationError

	for i, hk := range c.Hotkeys {
		field := func(name string) string {
			return fmt.Sprintf("hotkeys[%d].%s", i, name)
		}

		if strings.TrimSpace(hk.Chord) == "" {
			errors = append(errors, ValidationError{
				Field:   field("chord"),
				Value:   hk.Chord,
				Message: "must not be empty",
			})
		}

		if hk.Monitor != "" && !slices.Contains(ValidMonitorBehaviors(), hk.Monitor) {
			errors = append(errors, ValidationError{
				Field:   field("monitor"),
				Value:   hk.Monitor,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidMonitorBehaviors(), ", ")),
			})
		}

		if hk.Desktop != "" && !slices.Contains(ValidDesktopBehaviors(), hk.Desktop) {
			errors = append(errors, ValidationError{
				Field:   field("desktop"),
				Value:   hk.Desktop,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDesktopBehaviors(), ", ")),
			})
		}

		if hk.DropdownDurationMs < 0 {
			errors = append(errors, ValidationError{
				Field:   field("dropdown_duration_ms"),
				Value:   hk.DropdownDurationMs,
				Message: "must be non-negative",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
