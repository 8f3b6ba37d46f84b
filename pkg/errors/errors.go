package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors of the same kind regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined error kinds. Every error that crosses the service boundary is one of these.
var (
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrDuplicateEntity     = New("DUPLICATE_ENTITY", http.StatusConflict, "a record with the same unique fields already exists")
	ErrInvalidReference    = New("INVALID_REFERENCE", http.StatusBadRequest, "invalid reference to a related entity")
	ErrUpstreamAuthFailure = New("UPSTREAM_AUTH_FAILURE", http.StatusBadGateway, "identity provider rejected the operation")
	ErrUpstreamTimeout     = New("UPSTREAM_TIMEOUT", http.StatusGatewayTimeout, "identity provider did not respond in time")
	ErrStorageFailure      = New("STORAGE_FAILURE", http.StatusInternalServerError, "storage failure")
	ErrInvalidSortKey      = New("INVALID_SORT_KEY", http.StatusBadRequest, "order key does not exist")
	ErrOrphanedIdentity    = New("ORPHANED_IDENTITY", http.StatusInternalServerError, "identity provisioned but local write failed")
	ErrInvalidCredentials  = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUnauthorized        = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// From builds a new error of the given kind wrapping cause.
func From(kind *Error, cause error, message string) *Error {
	if message == "" {
		message = kind.Message
	}
	return &Error{Code: kind.Code, Status: kind.Status, Message: message, Err: cause}
}

// KindOf reports the code of err, or INTERNAL_ERROR for untyped errors.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
