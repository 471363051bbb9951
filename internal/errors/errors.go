// Package errors provides typed errors for the agent backend client.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies a failure for display and retry handling.
type Kind string

const (
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindServer  Kind = "server"
	KindClient  Kind = "client"
	KindUnknown Kind = "unknown"
)

// Sentinel errors for common cases
var (
	ErrEmptyResponse = errors.New("stream ended without any content")
	ErrMissingField  = errors.New("expected field missing from payload")
	ErrNoSession     = errors.New("no session cookie found")
	ErrClientClosed  = errors.New("client is closed")
)

// NetworkError represents a transport or connectivity failure
type NetworkError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("network error during %s at %s: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError creates a new NetworkError
func NewNetworkError(op, endpoint string, err error) *NetworkError {
	return &NetworkError{Op: op, Endpoint: endpoint, Err: err}
}

// TimeoutError represents an operation that exceeded its allotted duration
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s timed out", e.Op)
	}
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(op string, err error) *TimeoutError {
	return &TimeoutError{Op: op, Err: err}
}

// ServerError represents a failure status or malformed payload from the backend
type ServerError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
}

func (e *ServerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("server error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("server error at %s: %s", e.Endpoint, e.Message)
}

// NewServerError creates a new ServerError
func NewServerError(statusCode int, endpoint, message string) *ServerError {
	return &ServerError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// NewServerErrorWithBody creates a ServerError carrying the raw response body
// for diagnostics.
func NewServerErrorWithBody(statusCode int, endpoint, message, body string) *ServerError {
	return &ServerError{StatusCode: statusCode, Endpoint: endpoint, Message: message, Body: body}
}

// StreamFaultError represents an error frame reported inside a stream.
// The backend emits {"error": ..., "complete": true} when a streamed
// operation fails mid-flight.
type StreamFaultError struct {
	Message string
}

func (e *StreamFaultError) Error() string {
	return fmt.Sprintf("stream fault: %s", e.Message)
}

// NewStreamFaultError creates a new StreamFaultError
func NewStreamFaultError(message string) *StreamFaultError {
	return &StreamFaultError{Message: message}
}

// ClientError represents a local processing fault
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("client error: %s", e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// NewClientError creates a new ClientError
func NewClientError(message string, err error) *ClientError {
	return &ClientError{Message: message, Err: err}
}

// Classify maps an arbitrary error to its Kind. Typed errors win; untyped
// errors fall back to transport-status and message-content heuristics.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netTyped *NetworkError
	if errors.As(err, &netTyped) {
		// A transport error caused by a deadline still counts as a timeout
		var netErr net.Error
		if errors.As(netTyped.Err, &netErr) && netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	var serverErr *ServerError
	var streamFault *StreamFaultError
	if errors.As(err, &serverErr) || errors.As(err, &streamFault) ||
		errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMissingField) {
		return KindServer
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return KindClient
	}

	// Message-content heuristics for errors raised by lower layers we
	// don't control (DNS failures, proxy errors, ...).
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe"):
		return KindNetwork
	}

	return KindUnknown
}
