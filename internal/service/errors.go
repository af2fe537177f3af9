package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error.  Handlers map kinds to HTTP status codes.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindConflict     Kind = "CONFLICT"
	KindNotFound     Kind = "NOT_FOUND"
	KindAlreadyUsed  Kind = "ALREADY_USED"
	KindPolicy       Kind = "POLICY_VIOLATION"
	KindDependency   Kind = "DEPENDENCY_FAILURE"
	KindUnauthorized Kind = "UNAUTHORIZED"
)

// Error is returned by every service operation that fails for a reason the
// caller can act on.  Details carries structured context such as the seats
// that were unavailable.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// works regardless of message or details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind != "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrAlreadyUsed  = &Error{Kind: KindAlreadyUsed}
	ErrPolicy       = &Error{Kind: KindPolicy}
	ErrDependency   = &Error{Kind: KindDependency}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

func newError(kind Kind, msg string, err error, details map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Err: err, Details: details}
}

// KindOf returns the kind of err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
