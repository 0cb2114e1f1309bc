// Package fault defines the stable error taxonomy surfaced to API callers.
// Every rejection carries a kind plus a human message; transports map kinds to
// status codes without parsing messages.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// Validation marks malformed input: bad dates, non-positive guest counts.
	Validation Kind = "validation"
	// NotFound marks an unknown target or booking id.
	NotFound Kind = "not_found"
	// Unavailable marks a capacity or date conflict. It is a business-rule
	// rejection, not malformed input.
	Unavailable Kind = "unavailable"
	// InvalidTransition marks a booking status change the state machine forbids.
	InvalidTransition Kind = "invalid_transition"
	// Forbidden marks an authorization failure.
	Forbidden Kind = "forbidden"
	// Conflict marks a concurrent-update collision.
	Conflict Kind = "conflict"
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the taxonomy kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
