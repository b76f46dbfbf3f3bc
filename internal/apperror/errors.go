// Package apperror provides the domain error types for gatehouse. Every
// error carries an HTTP status code and a message that is safe to show to
// the end user. The Echo error handler maps them to responses; raw database
// or SMTP errors must never reach the client.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base type for all domain errors. Code drives the HTTP
// response, Type is a machine-readable classifier, Message is user-safe,
// and Internal holds the underlying cause for logging only.
type AppError struct {
	Code     int    `json:"-"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// Error type classifiers. Handlers branch on these to pick the right UI
// recovery path instead of inspecting status codes.
const (
	TypeValidation   = "validation_error"
	TypeDuplicate    = "duplicate_identity"
	TypeUnauthorized = "unauthorized"
	TypeNotFound     = "not_found"
	TypeTokenInvalid = "token_invalid"
	TypeUnavailable  = "store_unavailable"
	TypeInternal     = "internal_error"
)

// NewValidation creates a 422 error for form-level validation failures.
// Recovered locally: the form is re-rendered with the message.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeValidation,
		Message: message,
	}
}

// NewDuplicateIdentity creates a 409 error for a username/email collision.
func NewDuplicateIdentity(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    TypeDuplicate,
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeUnauthorized,
		Message: message,
	}
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewTokenInvalid creates the single user-visible outcome for a bad,
// tampered, or expired signed token. The two failure causes are deliberately
// collapsed: callers only learn "invalid or expired".
func NewTokenInvalid() *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeTokenInvalid,
		Message: "This link is invalid or has expired. Please request a new one.",
	}
}

// NewStoreUnavailable creates a 503 error for connectivity or transaction
// failures against the persistence store. The user sees a generic
// retry-later message; the cause is kept for logging.
func NewStoreUnavailable(err error) *AppError {
	return &AppError{
		Code:     http.StatusServiceUnavailable,
		Type:     TypeUnavailable,
		Message:  "Something went wrong on our end. Please try again later.",
		Internal: err,
	}
}

// NewInternal creates a 500 error. The real cause is stored in Internal for
// logging but the client only ever sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// SafeMessage returns the client-safe message for an error. Unknown error
// types get a generic message so internals (queries, hosts, stack traces)
// never leak.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code for an error, or 500 for any
// non-AppError type.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
