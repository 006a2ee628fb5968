package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed aggregation call.
type ErrorKind string

const (
	// KindTransport is a network or HTTP failure of a primary call.
	KindTransport ErrorKind = "transport"

	// KindValidation is a primary response with an unexpected shape.
	KindValidation ErrorKind = "validation"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrTransport  = errors.New("catalog transport failure")
	ErrValidation = errors.New("catalog response validation failure")
)

// Error is the single domain-level failure surfaced by an aggregation call.
// Both kinds propagate the same way; the kind is kept for logs and metrics.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewTransportError wraps a primary-call failure.
func NewTransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// NewValidationError wraps a malformed primary response.
func NewValidationError(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

// Message returns the original failure message without the domain prefix.
func (e *Error) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// MessageOf extracts a user-facing message from err, preferring the original
// message carried by an *Error. It returns "" for a nil error.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var catErr *Error
	if errors.As(err, &catErr) {
		return catErr.Message()
	}
	return err.Error()
}
