package errors

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers alongside the sentinel errors below.
const (
	CodeValidation        = "validation_error"
	CodeConcurrentRequest = "concurrent_request"
	CodeInitError         = "INIT_ERROR"
	CodeCallbackTimeout   = "CALLBACK_TIMEOUT"
)

var (
	// Checkout errors
	ErrConcurrentRequest = errors.New("a checkout is already in progress")
	ErrDispatchFailed    = errors.New("checkout provider could not be invoked")
	ErrSurfaceBusy       = errors.New("checkout surface is already presenting")

	// Attempt errors
	ErrAttemptNotFound        = errors.New("checkout attempt not found")
	ErrAttemptAlreadyResolved = errors.New("checkout attempt already resolved")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error on a single request field.
// It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewDispatchError reports that the provider could not be opened.
func NewDispatchError(cause error) *DomainError {
	return &DomainError{
		Code:    CodeInitError,
		Message: "failed to initialize checkout",
		Err:     fmt.Errorf("%w: %w", ErrDispatchFailed, cause),
	}
}
