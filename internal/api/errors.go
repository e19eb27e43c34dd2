package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/lingosync/internal/api/shared"
	"github.com/phrazzld/lingosync/internal/domain"
	"github.com/phrazzld/lingosync/internal/remote"
	"github.com/phrazzld/lingosync/internal/service"
	"github.com/phrazzld/lingosync/internal/store"
	"github.com/phrazzld/lingosync/internal/syncer"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, service.ErrLessonIDRequired),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrInvalidActionType),
		errors.Is(err, domain.ErrProgressScoreRange):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrActionNotFound):
		return http.StatusNotFound

	// The remote rejected or could not be reached
	case errors.Is(err, remote.ErrRemoteApplyFailed):
		return http.StatusBadGateway

	// Capability failures
	case errors.Is(err, syncer.ErrOffline),
		errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrLessonIDRequired):
		return "Lesson ID is required"

	case errors.Is(err, domain.ErrProgressScoreRange):
		return "Score must be between 0 and 100"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrInvalidActionType):
		return "Invalid request data"

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrActionNotFound):
		return "Resource not found"

	case errors.Is(err, remote.ErrRemoteApplyFailed):
		return "The remote service rejected the request"

	case errors.Is(err, syncer.ErrOffline):
		return "Cannot sync while offline"

	case errors.Is(err, store.ErrStorageUnavailable):
		return "Local storage is unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the sanitized error response for err, using
// overrideMessage when non-empty, and logs the redacted original.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, overrideMessage string) {
	status := MapErrorToStatusCode(err)
	message := overrideMessage
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'ProgressRequest.LessonID' Error:Field validation
	// for 'LessonID' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "value too small"
	case "max", "lte":
		return "value too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
