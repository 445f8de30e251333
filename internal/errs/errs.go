// Package errs defines the application error taxonomy. Every error that
// crosses a service boundary is (or wraps) an *Error, so the HTTP layer can
// map outcomes to status codes in exactly one place.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. The set is closed: services must not invent
// ad-hoc kinds, they pick the closest one here.
type Kind string

const (
	// KindUnauthenticated: no credential, or the credential failed verification.
	KindUnauthenticated Kind = "unauthenticated"
	// KindUnknownUser: the credential is valid but no user row exists yet
	// (account pending provisioning).
	KindUnknownUser Kind = "unknown_user"
	// KindForbidden: the authorization gate denied the action. Terminal;
	// never downgraded to a partial view.
	KindForbidden Kind = "forbidden"
	// KindNotFound: ticket or comment does not exist.
	KindNotFound Kind = "not_found"
	// KindValidation: malformed input; Field names the offending field.
	KindValidation Kind = "validation_error"
	// KindConflict: a compare-and-set race was lost. Benign; callers re-fetch.
	KindConflict Kind = "conflict"
	// KindTimeout: a collaborator call exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindUnavailable: a collaborator is unreachable.
	KindUnavailable Kind = "unavailable"
)

type Error struct {
	Kind    Kind
	Message string
	// Field is set for validation errors, Reason for authorization denials.
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field %q)", e.Kind, e.Message, e.Field)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func UnknownUser(email string) *Error {
	return &Error{Kind: KindUnknownUser, Message: "no user provisioned for " + email}
}

func Forbidden(reason string) *Error {
	return &Error{Kind: KindForbidden, Message: "access denied", Reason: reason}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Field: field}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// FromCollaborator classifies an error returned by a storage or pub/sub
// call. Context expiry becomes Timeout; anything else is Unavailable unless
// it already carries a kind.
func FromCollaborator(op string, err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: op + " timed out", Err: err}
	}
	return &Error{Kind: KindUnavailable, Message: op + " failed", Err: err}
}

// KindOf extracts the Kind from any error in the chain. Unknown errors
// report KindUnavailable so they surface as 503 rather than leaking
// internals with a 500 stack dump.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnavailable
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps a kind to its response code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated, KindUnknownUser:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
