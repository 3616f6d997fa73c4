package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested tenant-scoped resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrStateConflict indicates an illegal lifecycle transition, such as
// approving a transaction that is no longer a draft.
var ErrStateConflict = errors.New("illegal state transition")

// ErrFinancialIntegrity indicates a double-entry invariant violation
// (trial balance or split-sum mismatch). It always aborts the write.
var ErrFinancialIntegrity = errors.New("financial integrity violation")

// ErrServiceUnavailable indicates the circuit breaker to an external
// dependency is open and the call was not attempted.
var ErrServiceUnavailable = errors.New("external service unavailable")

// ErrInternal indicates an unexpected internal fault.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-ish status code alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ExternalSyncError describes a failed call to the shadow ledger or the
// external accounting endpoint, classified as retryable or not.
type ExternalSyncError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Retryable  bool
	Err        error
}

func (e *ExternalSyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("external sync to %s failed with status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("external sync to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ExternalSyncError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an ExternalSyncError marked retryable.
func IsRetryable(err error) bool {
	var syncErr *ExternalSyncError
	if errors.As(err, &syncErr) {
		return syncErr.Retryable
	}
	return false
}
