package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type ErrorKind string

const (
	ErrorKindTransient ErrorKind = "transient"
	ErrorKindPermanent ErrorKind = "permanent"
)

type ErrorOrigin string

const (
	ErrorOriginLocal  ErrorOrigin = "local"
	ErrorOriginRemote ErrorOrigin = "remote"
)

// Error classifies a failure so callers can decide whether a retry makes
// sense and whether the problem is on our side or the remote system's.
type Error struct {
	Kind   ErrorKind
	Origin ErrorOrigin
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s %s error: %v", e.Origin, e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s %s error: %v", e.Op, e.Origin, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewTransientError(op string, origin ErrorOrigin, err error) error {
	return &Error{Kind: ErrorKindTransient, Origin: origin, Op: op, Err: err}
}

func NewPermanentError(op string, origin ErrorOrigin, err error) error {
	return &Error{Kind: ErrorKindPermanent, Origin: origin, Op: op, Err: err}
}

// retryable is implemented by the typed errors of the REST clients.
type retryable interface {
	IsRetryable() bool
}

// IsTransient reports whether retrying err might succeed. Classified errors
// answer directly; client errors answer through IsRetryable; network errors
// and timeouts are transient; anything else is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == ErrorKindTransient
	}

	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

func IsRemote(err error) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Origin == ErrorOriginRemote
	}

	var r retryable
	return errors.As(err, &r)
}

// Classify wraps err with its inferred kind and origin unless it is already
// classified.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	origin := ErrorOriginLocal
	if IsRemote(err) {
		origin = ErrorOriginRemote
	}

	// context errors satisfy net.Error but are raised by our own deadlines.
	var netErr net.Error
	if errors.As(err, &netErr) && !isContextError(err) {
		origin = ErrorOriginRemote
	}

	if IsTransient(err) {
		return NewTransientError(op, origin, err)
	}

	return NewPermanentError(op, origin, err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
