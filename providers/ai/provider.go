package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider is implemented by every model backend.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// SendMessage sends a chat request and returns the completed response.
	// HTTP failures are reported as *StatusError.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)
}

// ErrMissingAPIKey is returned by providers configured without credentials.
var ErrMissingAPIKey = errors.New("ai: API key is not set")

// StatusError is a non-2xx answer from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed when repeated: rate
// limits, server errors and overload.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return e.StatusCode >= 500
}

// IsTemporary reports whether err wraps a temporary *StatusError.
func IsTemporary(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Temporary()
}
