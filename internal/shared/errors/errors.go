// Package errors provides application-level error types and utilities.
// It defines the error taxonomy used across the reconciliation engine:
// validation, not found, conflict, transient-provider, store-conflict and
// invariant-violation errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal_error"
	ErrorTypeBadRequest   ErrorType = "bad_request"

	// ErrorTypeTransient marks provider-side failures (timeout, 5xx,
	// rate limit) that the sync scheduler is expected to retry.
	ErrorTypeTransient ErrorType = "transient_provider_error"
	// ErrorTypeStoreConflict marks a lost conditional-write race against
	// the ledger store.
	ErrorTypeStoreConflict ErrorType = "store_conflict"
	// ErrorTypeInvariant marks a rejected state transition, e.g. an
	// attempted downgrade out of a terminal payment status.
	ErrorTypeInvariant ErrorType = "invariant_violation"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newAppError(t ErrorType, code int, message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details...)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details...)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, details...)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details...)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details...)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeBadRequest, http.StatusBadRequest, message, details...)
}

// NewTransientError creates a retryable provider error. It carries a 502 so
// handlers can distinguish it from caller mistakes; the webhook path still
// acknowledges such failures and defers the retry to the sync scheduler.
func NewTransientError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeTransient, http.StatusBadGateway, message, details...)
}

// NewStoreConflictError creates an error for a lost conditional-write race
func NewStoreConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeStoreConflict, http.StatusConflict, message, details...)
}

// NewInvariantError creates an error for a rejected state transition
func NewInvariantError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInvariant, http.StatusConflict, message, details...)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsTransientError reports whether the error is retryable by the sync
// scheduler rather than by the webhook caller.
func IsTransientError(err error) bool {
	return isType(err, ErrorTypeTransient)
}

// IsStoreConflictError checks if the error is a lost-write-race error
func IsStoreConflictError(err error) bool {
	return isType(err, ErrorTypeStoreConflict)
}

// IsInvariantError checks if the error is an invariant violation
func IsInvariantError(err error) bool {
	return isType(err, ErrorTypeInvariant)
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL duplicate entry error
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// SQLite / PostgreSQL unique violation
	if strings.Contains(errStr, "UNIQUE constraint") || strings.Contains(errStr, "unique constraint") {
		return true
	}
	return false
}
