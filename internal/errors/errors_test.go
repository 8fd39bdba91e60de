package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestHandoffError_Format(t *testing.T) {
	err := NewHandoffError("send failed", ErrSurfaceUnavailable).WithSocket("/run/perch.sock")

	want := "handoff error [socket=/run/perch.sock]: send failed: control surface unavailable"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestHandoffError_Is(t *testing.T) {
	err := NewHandoffError("send failed", ErrSurfaceUnavailable)

	if !Is(err, ErrSurfaceUnavailable) {
		t.Error("HandoffError should match its wrapped sentinel")
	}
	if Is(err, ErrMalformedPayload) {
		t.Error("HandoffError should not match unrelated sentinels")
	}
}

func TestWindowError_WithWindowID(t *testing.T) {
	err := NewWindowError("summon failed", ErrWindowNotFound).WithWindowID(0)

	want := "window error [window=0]: summon failed: window not found"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestRegistrationError_Format(t *testing.T) {
	err := NewRegistrationError(3, "ctrl+shift+f12", ErrChordUnavailable)

	want := "registration error [slot=3, chord=ctrl+shift+f12]: hotkey registration failed: hotkey chord unavailable"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
	if !Is(err, ErrChordUnavailable) {
		t.Error("RegistrationError should match ErrChordUnavailable")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", New("boom"), false},
		{"timeout error", NewTimeoutError("dial", time.Second), true},
		{"timeout marked not retryable", NewTimeoutError("dial", time.Second).WithRetryable(false), false},
		{"wrapped ErrTimeout", fmt.Errorf("outer: %w", ErrTimeout), true},
		{"wrapped ErrSurfaceUnavailable", fmt.Errorf("outer: %w", ErrSurfaceUnavailable), true},
		{"handoff error retryable", NewHandoffError("send", nil).WithRetryable(true), true},
		{"handoff error not retryable", NewHandoffError("send", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsMalformed(t *testing.T) {
	if !IsMalformed(Wrap(ErrMalformedPayload, "decode string")) {
		t.Error("Wrapped ErrMalformedPayload should classify as malformed")
	}
	if IsMalformed(ErrTimeout) {
		t.Error("ErrTimeout should not classify as malformed")
	}
	if IsMalformed(nil) {
		t.Error("nil should not classify as malformed")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	err := Wrapf(ErrTimeout, "register slot %d", 2)
	if !Is(err, ErrTimeout) {
		t.Error("Wrapf should preserve the error chain")
	}
	want := "register slot 2: operation timed out"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
