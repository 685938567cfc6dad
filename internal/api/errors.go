// Package api provides an HTTP client for the drive backend's v1 REST API
// with retry for idempotent reads and error classification.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest    = errors.New("api: bad request")
	ErrUnauthorized  = errors.New("api: unauthorized")
	ErrForbidden     = errors.New("api: forbidden")
	ErrNotFound      = errors.New("api: not found")
	ErrConflict      = errors.New("api: conflict")
	ErrUnprocessable = errors.New("api: unprocessable entity")
	ErrThrottled     = errors.New("api: throttled")
	ErrServerError   = errors.New("api: server error")
)

// Domain errors returned by the typed calls.
var (
	// ErrUserNotFound means the bearer token no longer resolves to a user:
	// either /v1/user/info answered 404 or its body carried no user.
	ErrUserNotFound = errors.New("api: user not found")

	// ErrFolderNotEmpty is the server's refusal to delete a folder that
	// still has children.
	ErrFolderNotEmpty = errors.New("api: folder not empty")
)

// APIError wraps a sentinel error with HTTP status code, request ID,
// and the response body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isRejection reports whether err is the backend refusing a folder delete
// on business grounds rather than a transport or server failure. It assumes
// the backend answers a non-empty delete with 400, 409 or 422. Any other
// status, 5xx included, surfaces as a plain API error.
func isRejection(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnprocessable)
}
