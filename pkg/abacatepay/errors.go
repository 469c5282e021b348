package abacatepay

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingCredential is returned before any request is sent when no API key is configured.
var ErrMissingCredential = errors.New("abacatepay: api key not configured")

// APIError is a non-2xx response from the Provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("abacatepay api error: %s (status %d)", e.Message, e.StatusCode)
}

// TransportError wraps connection failures and timeouts.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("abacatepay transport error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidResponseError is a success status carrying a body that could not be decoded.
type InvalidResponseError struct {
	StatusCode int
	Err        error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("abacatepay invalid response (status %d): %v", e.StatusCode, e.Err)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a failed call may be retried as-is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
