// Package apperr defines the typed error taxonomy shared by services and
// translated into HTTP responses at the boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindInternal is an unexpected failure. Details are never exposed.
	KindInternal Kind = iota
	// KindValidation is malformed or missing input.
	KindValidation
	// KindUnauthenticated is a missing, invalid, or expired credential.
	KindUnauthenticated
	// KindForbidden is an authenticated but disallowed request.
	KindForbidden
	// KindNotFound is a resource id with no matching row.
	KindNotFound
	// KindConflict is a state conflict, such as restoring a row that is
	// not in trash or violating a unique constraint.
	KindConflict
)

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps an error kind to its response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation returns a validation error listing every violated rule.
func Validation(details ...string) *Error {
	msg := "validation failed"
	if len(details) == 1 {
		msg = details[0]
	}
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// Unauthenticated returns a credential error.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden returns an access-denied error.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound returns a missing-resource error for the named resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Conflict returns a state-conflict error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal wraps an unexpected failure. The wrapped error is logged but
// never sent to clients.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From coerces any error into an *Error, wrapping unknown errors as
// internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
