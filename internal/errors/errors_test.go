package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"network typed", NewNetworkError("chat", "/chat", errors.New("refused")), KindNetwork},
		{"network typed with timeout cause", NewNetworkError("chat", "/chat", &fakeNetError{timeout: true}), KindTimeout},
		{"timeout typed", NewTimeoutError("search", nil), KindTimeout},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), KindTimeout},
		{"server typed", NewServerError(500, "/chat", "boom"), KindServer},
		{"stream fault", NewStreamFaultError("run failed"), KindServer},
		{"empty response", ErrEmptyResponse, KindServer},
		{"wrapped empty response", fmt.Errorf("decode: %w", ErrEmptyResponse), KindServer},
		{"missing field", ErrMissingField, KindServer},
		{"client typed", NewClientError("bad file", nil), KindClient},
		{"net.Error timeout", &fakeNetError{timeout: true}, KindTimeout},
		{"net.Error plain", &fakeNetError{}, KindNetwork},
		{"heuristic timeout", errors.New("i/o timeout while reading"), KindTimeout},
		{"heuristic refused", errors.New("dial tcp: connection refused"), KindNetwork},
		{"heuristic no such host", errors.New("lookup api: no such host"), KindNetwork},
		{"unknown", errors.New("something odd"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	cause := errors.New("refused")
	err := NewNetworkError("chat", "/chat", cause)

	if !errors.Is(err, cause) {
		t.Error("NetworkError should unwrap to its cause")
	}
}

func TestServerError_Message(t *testing.T) {
	err := NewServerErrorWithBody(502, "/search", "search failed", `{"detail":"upstream"}`)

	if err.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", err.StatusCode)
	}
	if err.Body == "" {
		t.Error("Body should be preserved")
	}

	msg := err.Error()
	if msg == "" || msg == "server error" {
		t.Errorf("unexpected error message: %q", msg)
	}
}
