// Package service provides application-level operations that compose the
// local store and the sync orchestrator. The key guarantee lives here: a
// local mutation and its pending action commit in a single transaction, so
// the replay log can never disagree with the stored state.
package service

import (
	"errors"
	"fmt"
)

// ErrLessonIDRequired indicates a progress mutation arrived without a lesson
// reference. API layer should map this to HTTP 400 Bad Request.
var ErrLessonIDRequired = errors.New("lesson ID is required")

// ProgressServiceError wraps unexpected failures from progress operations.
type ProgressServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ProgressServiceError.
func (e *ProgressServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("progress service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("progress service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ProgressServiceError) Unwrap() error {
	return e.Err
}

// NewProgressServiceError creates a new ProgressServiceError.
func NewProgressServiceError(operation, message string, err error) *ProgressServiceError {
	return &ProgressServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
