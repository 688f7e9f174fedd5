// Package apperrors defines the typed failures the fleet core returns to its
// callers. Every expected condition carries a kind and a human-readable
// message describing the violated rule; unexpected lower-layer failures are
// wrapped as KindInternal and keep their cause for logging, not for clients.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// KindInternal is an unexpected lower-layer failure (storage down etc.).
	KindInternal Kind = iota
	// KindNotFound means the referenced entity does not exist.
	KindNotFound
	// KindConstraintViolation means a uniqueness or shape rule was violated.
	KindConstraintViolation
	// KindInvalidState means the entity's current state forbids the operation.
	KindInvalidState
	// KindConflict means a mutually exclusive resource is held by another owner.
	KindConflict
)

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports that the referenced entity does not exist.
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ConstraintViolation reports a violated uniqueness or shape rule.
func ConstraintViolation(format string, args ...interface{}) error {
	return &Error{Kind: KindConstraintViolation, Message: fmt.Sprintf(format, args...)}
}

// InvalidState reports an operation forbidden by the entity's current state.
func InvalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a resource already held by another owner.
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. The message shown to callers stays
// generic; the cause is preserved for logs via Unwrap.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
