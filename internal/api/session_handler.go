package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phrazzld/deckstudy/internal/api/shared"
	"github.com/phrazzld/deckstudy/internal/domain"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/service/study_session"
)

// CardReader loads card content for the card a session is showing.
type CardReader interface {
	GetByID(ctx context.Context, id string) (*domain.Card, error)
}

// CurrentCardResponse is the card at the head of a session queue.
type CurrentCardResponse struct {
	SessionID string            `json:"session_id"`
	Type      string            `json:"type"`
	Content   json.RawMessage   `json:"content"`
	State     CardStateResponse `json:"state"`
	Remaining int               `json:"remaining"`
}

// SessionHandler handles study-session HTTP requests.
type SessionHandler struct {
	registry *SessionRegistry
	cards    CardReader
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(registry *SessionRegistry, cards CardReader, logger *slog.Logger) *SessionHandler {
	if registry == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("registry cannot be nil for SessionHandler")
	}
	if cards == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("card reader cannot be nil for SessionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionHandler{
		registry: registry,
		cards:    cards,
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// StartSession handles POST /api/decks/{deckID}/sessions.
// An empty body starts a chronological session over every card type.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	deckID, err := getPathID(r, "deckID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req StartSessionRequest
	if r.ContentLength != 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
			return
		}
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	filters := study_session.Filters{
		CardType: req.CardType,
		Order:    study_session.Order(req.Order),
	}
	controller, handle, err := h.registry.Start(r.Context(), deckID, filters)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}

	log.Debug("session started",
		slog.String("session_id", handle.ID),
		slog.String("deck_id", deckID),
		slog.Int("size", handle.Size))
	shared.RespondWithJSON(w, r, http.StatusCreated,
		sessionToResponse(*handle, controller.State(), controller.Remaining()))
}

// GetSession handles GET /api/sessions/{sessionID}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	handle, started := controller.Handle()
	if !started {
		HandleAPIError(w, r, ErrSessionNotFound, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK,
		sessionToResponse(handle, controller.State(), controller.Remaining()))
}

// GetCurrentCard handles GET /api/sessions/{sessionID}/current.
// It responds 204 once the session is complete.
func (h *SessionHandler) GetCurrentCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	state, ok := controller.CurrentCard()
	if !ok {
		log.Debug("session has no current card", slog.String("state", controller.State().String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	handle, _ := controller.Handle()

	card, err := h.cards.GetByID(r.Context(), state.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load card")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CurrentCardResponse{
		SessionID: handle.ID,
		Type:      card.Type,
		Content:   card.Content,
		State:     cardStateToResponse(state),
		Remaining: controller.Remaining(),
	})
}

// Rate handles POST /api/sessions/{sessionID}/rate.
func (h *SessionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req RateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := controller.Rate(r.Context(), outcome)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to rate card")
		return
	}

	log.Debug("card rated",
		slog.String("card_id", result.Card.ID),
		slog.String("outcome", req.Outcome),
		slog.Int("remaining", result.Remaining))
	shared.RespondWithJSON(w, r, http.StatusOK, rateResultToResponse(result))
}

// EndSession handles DELETE /api/sessions/{sessionID}.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getSessionID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.registry.End(sessionID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the session named in the path, writing an error response
// when it cannot.
func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*study_session.Controller, bool) {
	sessionID, err := getSessionID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}
	controller, err := h.registry.Get(sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}
	return controller, true
}
