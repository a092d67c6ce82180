package a2a

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorFormatting(t *testing.T) {
	withStatus := NewProtocolError("something broke", 500)
	if got := withStatus.Error(); got != "a2a: something broke (HTTP 500)" {
		t.Errorf("unexpected message: %q", got)
	}

	withoutStatus := NewProtocolError("something broke", 0)
	if strings.Contains(withoutStatus.Error(), "HTTP") {
		t.Errorf("message should omit status when unknown: %q", withoutStatus.Error())
	}
}

func TestSubtypesImplementError(t *testing.T) {
	// The subtypes embed ProtocolError; its Error method must promote so
	// each one satisfies the error interface with the base formatting.
	tests := []struct {
		err  error
		want string
	}{
		{NewTimeoutError("agent response timeout", time.Second), "a2a: agent response timeout (HTTP 408)"},
		{NewAuthError("authentication failed"), "a2a: authentication failed (HTTP 401)"},
		{NewDiscoveryError("card not found", "http://x"), "a2a: card not found (HTTP 404)"},
		{NewMessageError("invalid envelope"), "a2a: invalid envelope (HTTP 400)"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%T.Error() = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewTimeoutError("t", time.Second), 408},
		{NewAuthError("a"), 401},
		{NewDiscoveryError("d", "http://x"), 404},
		{NewMessageError("m"), 400},
	}

	for _, tt := range tests {
		var base *ProtocolError
		if !errors.As(tt.err, &base) {
			t.Fatalf("%T does not unwrap to *ProtocolError", tt.err)
		}
		if base.StatusCode != tt.want {
			t.Errorf("%T: expected status %d, got %d", tt.err, tt.want, base.StatusCode)
		}
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("turn failed: %w", NewTimeoutError("agent response timeout", 30*time.Second))

	var timeoutErr *TimeoutError
	if !errors.As(wrapped, &timeoutErr) {
		t.Fatal("TimeoutError not found through wrapping")
	}
	if timeoutErr.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", timeoutErr.Timeout)
	}

	var base *ProtocolError
	if !errors.As(wrapped, &base) {
		t.Fatal("base ProtocolError not found through wrapping")
	}
}

func TestDiscoveryErrorDetails(t *testing.T) {
	err := NewDiscoveryError("not found", "http://agent:8080")
	if err.Endpoint != "http://agent:8080" {
		t.Errorf("unexpected endpoint: %q", err.Endpoint)
	}
	if err.Details["endpoint"] != "http://agent:8080" {
		t.Errorf("details should carry the endpoint, got %v", err.Details)
	}
}
