// Package apperr defines the error taxonomy shared by every domain package.
//
// Domain packages declare coded sentinels with the constructors below, and
// callers branch on the kind with errors.Is:
//
//	var ErrInvalidTitle = apperr.Validation("invalid_title", "title is required")
//	...
//	if errors.Is(err, apperr.ErrValidation) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindUnauthorized    Kind = "unauthorized"
	KindNotFound        Kind = "not_found"
	KindInvalidState    Kind = "invalid_state"
	KindValidation      Kind = "validation_error"
	KindConflict        Kind = "conflict"
	KindUpstream        Kind = "upstream_error"
)

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Code: "unauthenticated"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Code: "unauthorized"}
	ErrNotFound        = &Error{Kind: KindNotFound, Code: "not_found"}
	ErrInvalidState    = &Error{Kind: KindInvalidState, Code: "invalid_state"}
	ErrValidation      = &Error{Kind: KindValidation, Code: "validation_error"}
	ErrConflict        = &Error{Kind: KindConflict, Code: "conflict"}
	ErrUpstream        = &Error{Kind: KindUpstream, Code: "upstream_error"}
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind when the target is a kind sentinel,
// and matches on kind and code otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if isKindSentinel(t) {
		return true
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.cause = cause
	return &clone
}

func isKindSentinel(e *Error) bool {
	return e.Code == string(e.Kind)
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Unauthenticated(code, message string) *Error {
	return newError(KindUnauthenticated, code, message)
}

func Unauthorized(code, message string) *Error {
	return newError(KindUnauthorized, code, message)
}

func NotFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

func InvalidState(code, message string) *Error {
	return newError(KindInvalidState, code, message)
}

func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

func Upstream(code, message string) *Error {
	return newError(KindUpstream, code, message)
}

// Validation builds a validation error bound to a request field.
func Validation(field, code, message string) *Error {
	e := newError(KindValidation, code, message)
	e.Field = field
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind, true
	}
	return "", false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}
