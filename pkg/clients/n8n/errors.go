package n8n

import (
	"errors"
	"fmt"
)

const maxLoggedBodyLength = 500

// Error represents an error response from the n8n API
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Body       string `json:"body,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("n8n: %s %s: %s (status: %d)", e.Method, e.Path, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("n8n: %s (status: %d)", e.Message, e.StatusCode)
}

// IsRetryable returns true if the error might be resolved by retrying
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// IsClientError returns true if the request itself was rejected, e.g. a
// graph that failed remote validation
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsAuthError returns true if the API key was missing or refused
func (e *Error) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsNotFound returns true if the resource was not found
func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}

// TruncatedBody returns the response body cut down for log output
func (e *Error) TruncatedBody() string {
	if len(e.Body) <= maxLoggedBodyLength {
		return e.Body
	}
	return e.Body[:maxLoggedBodyLength] + "..."
}

// AsError checks if an error is an n8n API error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFoundError checks if an error is a 404 from n8n
func IsNotFoundError(err error) bool {
	if e, ok := AsError(err); ok {
		return e.IsNotFound()
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if e, ok := AsError(err); ok {
		return e.IsAuthError()
	}
	return false
}
