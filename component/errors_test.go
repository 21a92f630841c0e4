package component

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		kind     Kind
	}{
		{InvalidInput("c", "data", "bad %s", "base64"), ErrInvalidInput, KindInvalidInput},
		{External("c", "GET", errors.New("connection refused")), ErrExternalFailure, KindExternal},
		{ExternalStatus("c", "GET", 503, "unavailable"), ErrExternalFailure, KindExternal},
		{Configuration("c", "api_key", "missing"), ErrConfiguration, KindConfiguration},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.sentinel) {
			t.Errorf("%v: expected errors.Is(%v)", tt.err, tt.sentinel)
		}
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("%v: KindOf = %v, want %v", tt.err, got, tt.kind)
		}
		wrapped := fmt.Errorf("invoke: %w", tt.err)
		if KindOf(wrapped) != tt.kind {
			t.Errorf("kind lost through wrapping: %v", wrapped)
		}
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	err := InvalidInput("c", "x", "bad")
	if errors.Is(err, ErrExternalFailure) || errors.Is(err, ErrConfiguration) {
		t.Errorf("invalid input error matched another kind: %v", err)
	}
}

func TestExternalStatusMessage(t *testing.T) {
	err := ExternalStatus("search.bing", "search", 401, "  unauthorized \n")
	if StatusOf(err) != 401 {
		t.Errorf("StatusOf = %d, want 401", StatusOf(err))
	}
	msg := err.Error()
	for _, want := range []string{"search.bing", "external failure", "status 401", "unauthorized"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestExternalStatusTruncatesOnRuneBoundary(t *testing.T) {
	// 511 ASCII bytes put the two-byte "é" across the cut.
	body := strings.Repeat("a", maxStatusBody-1) + strings.Repeat("é", 10)
	var e *Error
	if !errors.As(ExternalStatus("c", "GET", 500, body), &e) {
		t.Fatal("expected *Error")
	}
	msg := e.Err.Error()
	if !utf8.ValidString(msg) {
		t.Errorf("truncated body is not valid UTF-8: %q", msg[len(msg)-8:])
	}
	if want := strings.Repeat("a", maxStatusBody-1) + "..."; msg != want {
		t.Errorf("truncated body has %d bytes, want %d", len(msg), len(want))
	}
}

func TestExternalNilPassthrough(t *testing.T) {
	if External("c", "op", nil) != nil {
		t.Error("External(nil) should be nil")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should have unknown kind")
	}
}
