// Package errors provides centralized error definitions and error handling
// utilities for the Perch orchestrator. It defines domain-specific errors,
// error constructors with context wrapping, and classification helpers that
// the coordinator uses to decide between retrying, aborting silently, and
// failing startup.
//
// # Error Taxonomy
//
// The orchestrator distinguishes five classes of failure:
//
//   - Transient-retryable: the owner's control surface is not reachable yet.
//     Checked via IsRetryable; the coordinator retries with backoff.
//   - Best-effort-abort: the handoff send timed out or the retry budget is
//     exhausted. The process exits quietly.
//   - Malformed-input: a handoff payload failed a bounds check. The message
//     is discarded and logged; it never crashes the dispatcher.
//   - Resource-contention: a hotkey chord is already claimed elsewhere. That
//     one slot is skipped, the rest of the rebind proceeds.
//   - Fatal-environment: the control surface listener cannot be created.
//     This propagates up as a startup failure.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Handoff and coordination sentinel errors
var (
	// ErrMalformedPayload indicates that a handoff payload failed a bounds check.
	ErrMalformedPayload = New("malformed handoff payload")
	// ErrSurfaceUnavailable indicates that the owner's control surface could not be reached.
	ErrSurfaceUnavailable = New("control surface unavailable")
	// ErrHandoffRejected indicates that the owner refused or dropped the handoff.
	ErrHandoffRejected = New("handoff rejected")
	// ErrAlreadyOwned indicates that another process holds the instance lock.
	ErrAlreadyOwned = New("instance lock already held")
)

// Window lifecycle sentinel errors
var (
	// ErrWindowNotFound indicates that no live window matches the given identity.
	ErrWindowNotFound = New("window not found")
	// ErrManagerClosed indicates an operation on a manager that has begun shutdown.
	ErrManagerClosed = New("window manager closed")
)

// Hotkey sentinel errors
var (
	// ErrChordUnavailable indicates that the chord is already registered by another process.
	ErrChordUnavailable = New("hotkey chord unavailable")
	// ErrInvalidChord indicates that a chord string could not be parsed.
	ErrInvalidChord = New("invalid hotkey chord")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// retryable is implemented by errors that know whether a retry may succeed.
type retryable interface {
	IsRetryable() bool
}

// HandoffError represents errors in the cross-process handoff protocol.
//
// Example:
//
//	err := errors.NewHandoffError("send failed", errors.ErrSurfaceUnavailable).
//		WithSocket("/run/perch-release.sock").
//		WithRetryable(true)
type HandoffError struct {
	baseError
	Socket string
}

// NewHandoffError creates a new HandoffError.
func NewHandoffError(message string, cause error) *HandoffError {
	return &HandoffError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// WithSocket adds the control surface socket path to the error context.
func (e *HandoffError) WithSocket(path string) *HandoffError {
	e.Socket = path
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *HandoffError) WithRetryable(r bool) *HandoffError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *HandoffError) Error() string {
	prefix := "handoff error"
	if e.Socket != "" {
		prefix = fmt.Sprintf("handoff error [socket=%s]", e.Socket)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *HandoffError) Is(target error) bool {
	if _, ok := target.(*HandoffError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// WindowError represents errors in window lifecycle management.
type WindowError struct {
	baseError
	WindowID uint64
	hasID    bool
}

// NewWindowError creates a new WindowError.
func NewWindowError(message string, cause error) *WindowError {
	return &WindowError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// WithWindowID adds a window identity to the error context.
func (e *WindowError) WithWindowID(id uint64) *WindowError {
	e.WindowID = id
	e.hasID = true
	return e
}

// Error returns the formatted error message.
func (e *WindowError) Error() string {
	prefix := "window error"
	if e.hasID {
		prefix = fmt.Sprintf("window error [window=%d]", e.WindowID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *WindowError) Is(target error) bool {
	if _, ok := target.(*WindowError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RegistrationError represents a failed OS-level hotkey registration.
// These are resource-contention failures: the chord may be claimed by
// another process. The registry logs them and leaves the slot unbound.
type RegistrationError struct {
	baseError
	Slot  int
	Chord string
}

// NewRegistrationError creates a new RegistrationError.
func NewRegistrationError(slot int, chord string, cause error) *RegistrationError {
	return &RegistrationError{
		baseError: baseError{
			message: "hotkey registration failed",
			cause:   cause,
		},
		Slot:  slot,
		Chord: chord,
	}
}

// Error returns the formatted error message.
func (e *RegistrationError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("slot=%d", e.Slot))
	if e.Chord != "" {
		parts = append(parts, fmt.Sprintf("chord=%s", e.Chord))
	}
	prefix := fmt.Sprintf("registration error [%s]", strings.Join(parts, ", "))
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *RegistrationError) Is(target error) bool {
	if _, ok := target.(*RegistrationError); ok {
		return true
	}
	if errors.Is(target, ErrChordUnavailable) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for control surface", 10*time.Second)
//	fmt.Println(err) // "timeout error: waiting for control surface (timeout: 10s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   operation,
			retryable: true, // Timeouts are generally retryable
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrSurfaceUnavailable
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    continue
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if As(err, &r) {
		return r.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrSurfaceUnavailable)
}

// IsMalformed returns true if the error indicates a payload that failed a
// bounds or format check. Malformed messages are discarded, never retried.
func IsMalformed(err error) bool {
	return err != nil && Is(err, ErrMalformedPayload)
}

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to decode handoff")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to register slot %d", slot)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
