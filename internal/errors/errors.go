// Package errors defines the error taxonomy shared by the store, the
// pipelines and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError.
type ErrorType string

const (
	ErrorTypeMissingField     ErrorType = "MISSING_FIELD"
	ErrorTypeInvalidURL       ErrorType = "INVALID_URL"
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrorTypeConflict         ErrorType = "CONFLICT"
	ErrorTypeExternal         ErrorType = "EXTERNAL_SERVICE"
	ErrorTypeTransientStorage ErrorType = "TRANSIENT_STORAGE"
	ErrorTypeInternal         ErrorType = "INTERNAL"
)

// AppError is an error with a stable machine-readable type.
type AppError struct {
	Type       ErrorType
	Message    string
	Cause      error
	HTTPStatus int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, Cause: cause, HTTPStatus: status}
}

// NewMissingField reports a required input that was not supplied.
func NewMissingField(fields ...string) *AppError {
	msg := "missing required field"
	if len(fields) == 1 {
		msg = fields[0] + " is required"
	} else if len(fields) > 1 {
		msg = fmt.Sprintf("%v are required", fields)
	}
	return newError(ErrorTypeMissingField, http.StatusBadRequest, msg, nil)
}

// NewInvalidURL reports a URL without a usable host.
func NewInvalidURL(raw string, cause error) *AppError {
	return newError(ErrorTypeInvalidURL, http.StatusBadRequest, fmt.Sprintf("invalid url %q", raw), cause)
}

// NewValidation reports malformed input other than a missing field.
func NewValidation(message string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, nil)
}

// NewNotFound reports an absent resource.
func NewNotFound(resource string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, resource+" not found", nil)
}

// NewUnauthorized reports failed authentication.
func NewUnauthorized(message string) *AppError {
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, nil)
}

// NewConflict reports a uniqueness violation.
func NewConflict(message string) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message, nil)
}

// NewExternal wraps a failed language-model or image-host call.
func NewExternal(service string, cause error) *AppError {
	return newError(ErrorTypeExternal, http.StatusBadGateway, service+" call failed", cause)
}

// NewTransient wraps a storage failure the caller may retry.
func NewTransient(op string, cause error) *AppError {
	return newError(ErrorTypeTransientStorage, http.StatusInternalServerError, op+" failed", cause)
}

// NewInternal wraps anything else.
func NewInternal(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// TypeOf returns the type of the first AppError in err's chain, or INTERNAL.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// HTTPStatusOf maps err to a response status.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

func IsMissingField(err error) bool { return TypeOf(err) == ErrorTypeMissingField }
func IsInvalidURL(err error) bool   { return TypeOf(err) == ErrorTypeInvalidURL }
func IsValidation(err error) bool   { return TypeOf(err) == ErrorTypeValidation }
func IsNotFound(err error) bool     { return TypeOf(err) == ErrorTypeNotFound }
func IsUnauthorized(err error) bool { return TypeOf(err) == ErrorTypeUnauthorized }
func IsConflict(err error) bool     { return TypeOf(err) == ErrorTypeConflict }
func IsExternal(err error) bool     { return TypeOf(err) == ErrorTypeExternal }
func IsTransient(err error) bool    { return TypeOf(err) == ErrorTypeTransientStorage }
