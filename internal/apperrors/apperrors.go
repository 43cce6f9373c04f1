// Package apperrors defines the error taxonomy surfaced to API callers.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	// KindInternal covers infrastructure failures and anything unclassified.
	KindInternal Kind = iota
	// KindBadRequest marks missing or invalid input.
	KindBadRequest
	// KindUnauthorized marks a missing, invalid or mismatched credential.
	KindUnauthorized
	// KindConflict marks a uniqueness violation.
	KindConflict
	// KindNotFound marks an unknown record.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind onto a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// InternalMessage is the only message exposed for internal failures.
const InternalMessage = "internal server error"

// Error is a classified failure with a message that is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error's kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// PublicMessage returns the message written to the response body.
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return InternalMessage
	}
	return e.Message
}

// BadRequest builds a KindBadRequest error.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal wraps an infrastructure failure. The message is logged, never returned.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
