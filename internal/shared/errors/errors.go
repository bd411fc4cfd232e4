// Package errors defines the error taxonomy shared by the generation
// pipeline and the HTTP layer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the pipeline error classes.
var (
	// ErrConfiguration marks missing credentials or misconfiguration.
	// Never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks malformed input: unsupported model identifiers,
	// missing required reference images.
	ErrValidation = errors.New("validation error")
	// ErrProvider marks a terminal provider-side rejection (4xx except 429).
	ErrProvider = errors.New("provider error")
	// ErrTransient marks a retryable failure (5xx, 429, network, timeout).
	ErrTransient = errors.New("transient error")
	// ErrCancelled marks an operator-initiated cancellation. Never treated
	// as a failure for alerting.
	ErrCancelled = errors.New("cancelled")
	// ErrNoMedia marks a successful provider response that carried no
	// usable artifact.
	ErrNoMedia = errors.New("no media in response")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict marks an operation rejected because of current state,
	// e.g. a duplicate generation start.
	ErrConflict = errors.New("resource conflict")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Common error constructors.

// Configuration creates a configuration error, e.g. a missing API key.
func Configuration(message string) *AppError {
	return &AppError{
		Code:       "CONFIGURATION_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        ErrConfiguration,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrValidation,
	}
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
		Err:        ErrConflict,
	}
}

// Provider wraps a terminal provider failure, preserving the raw
// provider message verbatim for operator diagnosis.
func Provider(message string) *AppError {
	return &AppError{
		Code:       "PROVIDER_ERROR",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        ErrProvider,
	}
}

// Transient wraps a retryable failure.
func Transient(message string, err error) *AppError {
	return &AppError{
		Code:       "TRANSIENT_ERROR",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        errors.Join(ErrTransient, err),
	}
}

// Cancelled creates a cancellation error.
func Cancelled(operation string) *AppError {
	return &AppError{
		Code:       "CANCELLED",
		Message:    fmt.Sprintf("%s cancelled", operation),
		StatusCode: http.StatusConflict,
		Err:        ErrCancelled,
	}
}

// NoMedia creates an error for a success response without an artifact.
func NoMedia(provider string) *AppError {
	return &AppError{
		Code:       "NO_MEDIA",
		Message:    fmt.Sprintf("%s returned no media in response", provider),
		StatusCode: http.StatusBadGateway,
		Err:        ErrNoMedia,
	}
}

// IsCancelled reports whether err is a cancellation, including plain
// context cancellation bubbling out of an HTTP call.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsRetryable reports whether err belongs to the transient class.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
