package a2a

import (
	"fmt"
	"time"
)

// ProtocolError is the base error for A2A protocol failures. It carries the
// HTTP status code when one is known (0 otherwise) and optional detail
// values. Subtypes embed it, so errors.As against *ProtocolError matches
// every error this package produces.
type ProtocolError struct {
	Message    string
	StatusCode int
	Details    map[string]any
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("a2a: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("a2a: %s", e.Message)
}

// NewProtocolError creates a base protocol error.
func NewProtocolError(message string, statusCode int) *ProtocolError {
	return &ProtocolError{Message: message, StatusCode: statusCode}
}

// TimeoutError indicates the agent did not respond within the configured
// timeout (HTTP 408 semantics).
type TimeoutError struct {
	ProtocolError
	Timeout time.Duration
}

func NewTimeoutError(message string, timeout time.Duration) *TimeoutError {
	e := &TimeoutError{Timeout: timeout}
	e.Message = message
	e.StatusCode = 408
	if timeout > 0 {
		e.Details = map[string]any{"timeout": timeout.String()}
	}
	return e
}

func (e *TimeoutError) Unwrap() error { return &e.ProtocolError }

// AuthError indicates the agent rejected the configured credentials.
type AuthError struct {
	ProtocolError
}

func NewAuthError(message string) *AuthError {
	e := &AuthError{}
	e.Message = message
	e.StatusCode = 401
	return e
}

func (e *AuthError) Unwrap() error { return &e.ProtocolError }

// DiscoveryError indicates agent card discovery failed. Endpoint identifies
// the agent that could not be discovered.
type DiscoveryError struct {
	ProtocolError
	Endpoint string
}

func NewDiscoveryError(message, endpoint string) *DiscoveryError {
	e := &DiscoveryError{Endpoint: endpoint}
	e.Message = message
	e.StatusCode = 404
	if endpoint != "" {
		e.Details = map[string]any{"endpoint": endpoint}
	}
	return e
}

func (e *DiscoveryError) Unwrap() error { return &e.ProtocolError }

// MessageError indicates a malformed response envelope or a server-reported
// JSON-RPC error.
type MessageError struct {
	ProtocolError
}

func NewMessageError(message string) *MessageError {
	e := &MessageError{}
	e.Message = message
	e.StatusCode = 400
	return e
}

func (e *MessageError) Unwrap() error { return &e.ProtocolError }
