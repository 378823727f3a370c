// Package errors defines the error taxonomy shared by docview components.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeClassNotFound   = "ERR_CLASS_NOT_FOUND"
	ErrCodeFetchFailed     = "ERR_FETCH_FAILED"
	ErrCodeDecodeFailed    = "ERR_DECODE_FAILED"
	ErrCodeInvalidURL      = "ERR_INVALID_URL"
	ErrCodeInvalidIntent   = "ERR_INVALID_INTENT"
	ErrCodeInvalidGrouping = "ERR_INVALID_GROUPING"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeSettings        = "ERR_SETTINGS"
	ErrCodeInternalError   = "ERR_INTERNAL"
)

// DocError is a structured error type with context.
type DocError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Class       string
	Recoverable bool
}

// Error implements the error interface.
func (e *DocError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Class != "" {
		parts = append(parts, "class:"+e.Class)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *DocError) Is(target error) bool {
	var t *DocError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *DocError) WithContext(key string, value interface{}) *DocError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithClass adds class context.
func (e *DocError) WithClass(class string) *DocError {
	e.Class = class

	return e
}

// NewNotFoundError creates the error reported when a class name does not
// resolve to a document.
func NewNotFoundError(class string, cause error) *DocError {
	return &DocError{
		Type:        ErrorTypeNotFound,
		Code:        ErrCodeClassNotFound,
		Message:     "class not found",
		Cause:       cause,
		Class:       class,
		Recoverable: false,
	}
}

// NewNetworkError creates a transient fetch failure.
func NewNetworkError(code, message string, cause error) *DocError {
	return &DocError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *DocError {
	return &DocError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *DocError {
	return &DocError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *DocError {
	return &DocError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *DocError {
	return &DocError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsNetwork reports whether err is a transient fetch failure.
func IsNetwork(err error) bool {
	return hasType(err, ErrorTypeNetwork)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsLoadFailure reports whether err means a class could not be displayed.
// NotFound and transient network failures are treated the same way by the
// navigation layer.
func IsLoadFailure(err error) bool {
	return IsNotFound(err) || IsNetwork(err)
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var de *DocError
	if errors.As(err, &de) {
		return de.Recoverable
	}

	return false
}

func hasType(err error, t ErrorType) bool {
	var de *DocError
	if errors.As(err, &de) {
		return de.Type == t
	}
	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var de *DocError
	if !errors.As(err, &de) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch de.Type {
	case ErrorTypeNotFound, ErrorTypeNetwork, ErrorTypeValidation:
		h.logger.Warn(ctx, de, "Request failed",
			"type", de.Type,
			"code", de.Code,
			"class", de.Class)
	default:
		h.logger.Error(ctx, de, "Error occurred",
			"type", de.Type,
			"code", de.Code,
			"class", de.Class)
	}
}
