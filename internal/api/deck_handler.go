package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/deckstudy/internal/api/shared"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/service"
)

// DeckHandler handles deck and card HTTP requests outside of sessions.
type DeckHandler struct {
	decks  service.DeckService
	clock  func() time.Time
	logger *slog.Logger
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(decks service.DeckService, logger *slog.Logger) *DeckHandler {
	if decks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("deck service cannot be nil for DeckHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DeckHandler{
		decks:  decks,
		clock:  time.Now,
		logger: logger.With(slog.String("component", "deck_handler")),
	}
}

// ListDecks handles GET /api/decks.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.decks.ListDecks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list decks")
		return
	}

	resp := make([]DeckResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, deckSummaryToResponse(s))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ImportDeck handles POST /api/decks. The deck and its cards are unlocked
// now; every card starts New.
func (h *DeckHandler) ImportDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ImportDeckRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	deck, cards, err := req.ToDomain(h.clock())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.decks.ImportDeck(r.Context(), deck, cards); err != nil {
		HandleAPIError(w, r, err, "Failed to import deck")
		return
	}

	log.Debug("deck imported", slog.String("deck_id", deck.ID), slog.Int("cards", len(cards)))
	shared.RespondWithJSON(w, r, http.StatusCreated, DeckResponse{
		ID:         deck.ID,
		Title:      deck.Title,
		UnlockedAt: deck.UnlockedAt,
		DueCount:   len(cards),
	})
}

// ResetDeck handles POST /api/decks/{deckID}/reset.
func (h *DeckHandler) ResetDeck(w http.ResponseWriter, r *http.Request) {
	deckID, err := getPathID(r, "deckID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	n, err := h.decks.ResetDeck(r.Context(), deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset deck")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ResetDeckResponse{DeckID: deckID, Reset: n})
}

// PreviewCard handles GET /api/cards/{cardID}/preview.
func (h *DeckHandler) PreviewCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathID(r, "cardID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	preview, err := h.decks.PreviewCard(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to preview card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, previewToResponse(preview))
}

// PostponeCard handles POST /api/cards/{cardID}/postpone.
func (h *DeckHandler) PostponeCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathID(r, "cardID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req PostponeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	state, err := h.decks.PostponeCard(r.Context(), cardID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to postpone card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state))
}

// CardHistory handles GET /api/cards/{cardID}/history.
func (h *DeckHandler) CardHistory(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathID(r, "cardID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entries, err := h.decks.CardHistory(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load card history")
		return
	}

	resp := make([]ReviewLogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, reviewLogToResponse(e))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
