// Package domainerrors defines the error taxonomy services expose to
// transports. Stores return sentinel errors from pkg/platform/sentinel;
// services translate them into coded domain errors here so handlers can map
// a code to an HTTP status without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	// CodeUnauthorized: the principal lacks the role or city scope for the
	// operation. Returned instead of CodeNotFound whenever revealing
	// existence would leak information.
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	// CodeConflict: a state machine precondition failed (already processed,
	// token already filled). Duplicate-key violations from storage also
	// surface as conflicts.
	CodeConflict   Code = "conflict"
	CodeValidation Code = "validation"
	CodeInternal   Code = "internal"
)

// Error carries a stable code for transport mapping plus a human message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode, used at call sites that branch on
// error codes.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Message returns the user-facing message of a domain error, or a generic
// message for anything else so internals never leak to clients.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
