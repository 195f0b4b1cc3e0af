package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrTransient and ErrPermanent classify request failures. Transient
// failures are retried by the client; permanent ones are returned at once.
var (
	ErrTransient = errors.New("transient error")
	ErrPermanent = errors.New("permanent error")

	// ErrInvalidConfig is returned when a Config cannot be used.
	ErrInvalidConfig = errors.New("africastalking: invalid config")
	// ErrInvalidRequest is returned when a request fails validation before
	// anything is sent.
	ErrInvalidRequest = errors.New("africastalking: invalid request")
)

// WrapTransient annotates an error so callers can detect transient failures.
func WrapTransient(err error) error {
	if err == nil {
		return ErrTransient
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// WrapPermanent annotates an error as permanent.
func WrapPermanent(err error) error {
	if err == nil {
		return ErrPermanent
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsRetryable reports whether err was classified as transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Code       string
	MoreInfo   string
	// Body is the raw reply, truncated.
	Body string
	// RetryAfter is the server requested delay on 429 replies.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("africastalking: %s %s: http %d: %s (%s)", e.Method, e.Path, e.StatusCode, msg, e.Code)
	}
	return fmt.Sprintf("africastalking: %s %s: http %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// RateLimited reports whether the gateway throttled the request.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// classify wraps an API error as transient for throttling and server
// failures and as permanent otherwise.
func classify(e *APIError) error {
	if e.RateLimited() || e.StatusCode >= http.StatusInternalServerError {
		return WrapTransient(e)
	}
	return WrapPermanent(e)
}

// TruncateRaw shortens a reply body kept for diagnostics.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 || len(raw) <= limit {
		return raw
	}
	return raw[:limit]
}
