package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation_error"
	KindUnavailable       Kind = "unavailable"
)

// Error is the single error type surfaced by the core packages. Kind drives
// the HTTP mapping in handlers; Allowed carries the permitted next states on
// invalid transitions so the client can explain the rejection.
type Error struct {
	Kind    Kind
	Message string
	Allowed []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match on kind: errors.Is(err, &Error{Kind: KindConflict}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports a state machine violation. allowed lists the
// states reachable from the current one (may be empty for terminal states).
func InvalidTransition(message string, allowed []string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: message, Allowed: allowed}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, cause: cause}
}

// KindOf extracts the kind from err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AllowedOf returns the permitted next states attached to err, if any.
func AllowedOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Allowed
	}
	return nil
}
