package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/deckstudy/internal/domain"
)

// maxPathIDLength bounds deck and card IDs taken from the URL.
const maxPathIDLength = 128

// getPathID extracts a deck or card ID from the URL path. These IDs are
// chosen by deck authors, so any short non-blank value is accepted.
func getPathID(r *http.Request, paramName string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, paramName))
	if id == "" {
		return "", domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	if len(id) > maxPathIDLength {
		return "", domain.NewValidationError(paramName, "is too long", domain.ErrInvalidID)
	}
	return id, nil
}

// getSessionID extracts a session ID from the URL path. Session IDs are
// generated by the server and must parse as UUIDs.
func getSessionID(r *http.Request) (string, error) {
	param := chi.URLParam(r, "sessionID")
	if param == "" {
		return "", domain.NewValidationError("sessionID", "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return "", domain.NewValidationError("sessionID", "has invalid format", domain.ErrInvalidID)
	}
	return id.String(), nil
}
