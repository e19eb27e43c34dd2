package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrStorageUnavailable is returned when the host platform lacks durable
	// local storage (the database cannot be created or opened at all).
	// This is a capability failure, not a transient error: callers must
	// degrade gracefully rather than retry.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrNotFound is returned when a requested record does not exist in the
	// store. Read operations translate this to a nil record instead of
	// surfacing it; it exists for internal use and defensive paths.
	ErrNotFound = errors.New("record not found")

	// ErrWriteFailed is returned when a durable write cannot be committed.
	// The underlying transaction error is wrapped for diagnostics.
	ErrWriteFailed = errors.New("write failed")

	// ErrTransactionFailed is returned when a transaction fails to begin,
	// commit, or an operation inside it fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrActionNotFound is returned by MarkActionSynced when the pending
	// action no longer exists. Under normal operation this cannot happen,
	// since actions are only removed by a full reset.
	ErrActionNotFound = fmt.Errorf("%w: pending action", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailableError checks if the error indicates missing storage capability.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Collection string // The collection involved (e.g., "lessons", "pending_actions")
	Operation  string // The operation that failed (e.g., "put", "get_all")
	Message    string // Error message
	Err        error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Collection,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Collection, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given collection, operation,
// message, and wrapped error.
func NewStoreError(collection, operation, message string, err error) *StoreError {
	return &StoreError{
		Collection: collection,
		Operation:  operation,
		Message:    message,
		Err:        err,
	}
}
