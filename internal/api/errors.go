package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/deckstudy/internal/api/shared"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/service"
	"github.com/phrazzld/deckstudy/internal/service/study_session"
	"github.com/phrazzld/deckstudy/internal/store"
)

// ErrSessionNotFound is returned when a session ID is unknown to the registry.
var ErrSessionNotFound = errors.New("session not found")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, store.ErrDeckNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, study_session.ErrNoCardsDue):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, study_session.ErrSessionNotInSetup),
		errors.Is(err, study_session.ErrNoActiveSession),
		errors.Is(err, study_session.ErrRateInProgress),
		errors.Is(err, srs.ErrNotReviewed),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Corrupted stored state is a server fault even though it is a domain error.
	case errors.Is(err, domain.ErrInvalidCardState):
		return http.StatusInternalServerError

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidCardContent),
		errors.Is(err, study_session.ErrInvalidFilters),
		errors.Is(err, srs.ErrInvalidDays),
		errors.Is(err, service.ErrEmptyDeck),
		errors.Is(err, service.ErrCardDeckMismatch),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, study_session.ErrNoCardsDue):
		return "No cards due"
	case errors.Is(err, store.ErrDeckNotFound):
		return "Deck not found"
	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, study_session.ErrSessionNotInSetup):
		return "Session already started"
	case errors.Is(err, study_session.ErrNoActiveSession):
		return "No card to rate"
	case errors.Is(err, study_session.ErrRateInProgress):
		return "A rating is already in progress"
	case errors.Is(err, srs.ErrNotReviewed):
		return "Only reviewed cards can be postponed"
	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"

	case errors.Is(err, domain.ErrInvalidCardState):
		return "Stored card state is invalid"

	case errors.Is(err, domain.ErrInvalidOutcome):
		return "Invalid outcome"
	case errors.Is(err, study_session.ErrInvalidFilters):
		return "Invalid session filters"
	case errors.Is(err, srs.ErrInvalidDays):
		return "Invalid postpone days"
	case errors.Is(err, service.ErrEmptyDeck):
		return "Deck has no cards"
	case errors.Is(err, service.ErrCardDeckMismatch):
		return "Card belongs to a different deck"
	case errors.Is(err, domain.ErrInvalidCardContent):
		return "Invalid card content"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. fallback
// replaces the generic message of unmapped (500) errors when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, study_session.ErrRateInProgress) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError writes a 400 for a request that failed decoding or
// validation.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns a validator error into a short message that
// names the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(first.Field()), getValidationTagMessage(first.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
