package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeClassNotFound ErrorType = "class_not_found"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeIO            ErrorType = "io"
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeState         ErrorType = "state"
	ErrorTypeInternal      ErrorType = "internal"
)

// KernelError is a structured error type with context.
type KernelError struct {
	Type    ErrorType
	Code    string
	Message string
	// Status is the HTTP status the error maps to, zero when it has none.
	Status  int
	// Class is the fully-qualified class identifier for ClassNotFound errors.
	Class   string
	Path    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *KernelError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *KernelError) Is(target error) bool {
	var t *KernelError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *KernelError) WithContext(key string, value interface{}) *KernelError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches the file or directory the error relates to.
func (e *KernelError) WithPath(path string) *KernelError {
	e.Path = path

	return e
}

// Common error codes.
const (
	ErrCodeAppNotFound        = "ERR_APP_NOT_FOUND"
	ErrCodeClassNotFound      = "ERR_CLASS_NOT_FOUND"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeConfigLoad         = "ERR_CONFIG_LOAD"
	ErrCodeManifestInvalid    = "ERR_MANIFEST_INVALID"
	ErrCodeInvalidPath        = "ERR_INVALID_PATH"
	ErrCodePathTraversal      = "ERR_PATH_TRAVERSAL"
	ErrCodeAlreadyInitialized = "ERR_ALREADY_INITIALIZED"
	ErrCodeNotInitialized     = "ERR_NOT_INITIALIZED"
	ErrCodeUnknownHook        = "ERR_UNKNOWN_HOOK"
	ErrCodeUnknownMiddleware  = "ERR_UNKNOWN_MIDDLEWARE"
	ErrCodeUnknownListener    = "ERR_UNKNOWN_LISTENER"
	ErrCodeCacheWrite         = "ERR_CACHE_WRITE"
	ErrCodeInternalError      = "ERR_INTERNAL"
	ErrCodeValidationFailed   = "ERR_VALIDATION_FAILED"
)

// Error creation functions

// NewNotFoundError creates a 404-class error.
func NewNotFoundError(code, message string) *KernelError {
	return &KernelError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// NewClassNotFoundError creates an error for a class identifier that has no
// registered constructor.
func NewClassNotFoundError(class string) *KernelError {
	return &KernelError{
		Type:    ErrorTypeClassNotFound,
		Code:    ErrCodeClassNotFound,
		Message: "class not exists: " + class,
		Class:   class,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *KernelError {
	return &KernelError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *KernelError {
	return &KernelError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *KernelError {
	return &KernelError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStateError creates a lifecycle state error.
func NewStateError(code, message string) *KernelError {
	return &KernelError{
		Type:    ErrorTypeState,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *KernelError {
	return &KernelError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Helper functions for common errors

// ErrAppNotFound creates the error raised when a request targets an app name
// that is reserved as an alias in the name map.
func ErrAppNotFound(name string) *KernelError {
	return NewNotFoundError(ErrCodeAppNotFound, "app not exists: "+name).
		WithContext("app", name)
}

// ErrInvalidPath creates a path validation error.
func ErrInvalidPath(path string) *KernelError {
	return NewValidationError(ErrCodeInvalidPath, "invalid path: "+path)
}

// ErrPathTraversal creates a path traversal validation error.
func ErrPathTraversal(path string) *KernelError {
	return NewValidationError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// Error inspection

// IsNotFound reports whether err is a 404-class kernel error.
func IsNotFound(err error) bool {
	return findType(err, ErrorTypeNotFound) != nil
}

// IsClassNotFound reports whether err is a class resolution failure.
func IsClassNotFound(err error) bool {
	return findType(err, ErrorTypeClassNotFound) != nil
}

// ClassOf returns the class identifier carried by a ClassNotFound error.
func ClassOf(err error) (string, bool) {
	if ke := findType(err, ErrorTypeClassNotFound); ke != nil {
		return ke.Class, true
	}

	return "", false
}

// findType returns the outermost KernelError of type t in err's chain.
func findType(err error, t ErrorType) *KernelError {
	for err != nil {
		var ke *KernelError
		if !errors.As(err, &ke) {
			return nil
		}
		if ke.Type == t {
			return ke
		}
		err = ke.Cause
	}
	return nil
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var ke *KernelError
	if errors.As(err, &ke) && ke.Status != 0 {
		return ke.Status
	}

	return http.StatusInternalServerError
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

// Handle processes an error with appropriate logging.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ke *KernelError
	if !errors.As(err, &ke) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch ke.Type {
	case ErrorTypeNotFound, ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Request rejected",
			"type", ke.Type,
			"code", ke.Code,
			"status", ke.Status)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", ke.Type,
			"code", ke.Code,
			"class", ke.Class)
	}
}
