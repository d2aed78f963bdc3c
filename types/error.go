package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the substrate.
type ErrorCode string

// Discovery and invocation error codes
const (
	ErrRegistration ErrorCode = "REGISTRATION_FAILED"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrResolution   ErrorCode = "RESOLUTION_FAILED"
	ErrInvocation   ErrorCode = "INVOCATION_FAILED"
)

// Transport and service error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Storage error codes
const (
	ErrStorage       ErrorCode = "STORAGE_ERROR"
	ErrRecordMissing ErrorCode = "RECORD_MISSING"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Agent      string    `json:"agent,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithAgent sets the agent name or URL the error relates to.
func (e *Error) WithAgent(agent string) *Error {
	e.Agent = agent
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// HTTPStatusOf returns the HTTP status attached to err, or the fallback
// when err carries none.
func HTTPStatusOf(err error, fallback int) int {
	var e *Error
	if errors.As(err, &e) && e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return fallback
}
