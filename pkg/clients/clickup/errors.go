package clickup

import (
	"errors"
	"fmt"
)

const maxLoggedBodyLength = 500

// Error represents an error response from the ClickUp API. ClickUp reports
// {"err": "...", "ECODE": "..."} bodies.
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"err"`
	Code       string `json:"ECODE"`
	Body       string `json:"-"`
	Method     string `json:"-"`
	Path       string `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("clickup: %s %s: %s [%s] (status: %d)", e.Method, e.Path, e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("clickup: %s %s: %s (status: %d)", e.Method, e.Path, e.Message, e.StatusCode)
}

// IsRetryable returns true if the error might be resolved by retrying
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func (e *Error) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}

func (e *Error) TruncatedBody() string {
	if len(e.Body) <= maxLoggedBodyLength {
		return e.Body
	}
	return e.Body[:maxLoggedBodyLength] + "..."
}

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsNotFoundError(err error) bool {
	if e, ok := AsError(err); ok {
		return e.IsNotFound()
	}
	return false
}
