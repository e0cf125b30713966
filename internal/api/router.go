package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	apiMiddleware "github.com/phrazzld/deckstudy/internal/api/middleware"
)

// RouterConfig collects what NewRouter needs.
type RouterConfig struct {
	Sessions       *SessionHandler
	Decks          *DeckHandler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the chi router with every API route.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         300,
	}))
	r.Use(apiMiddleware.NewTraceMiddleware(log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/decks", cfg.Decks.ListDecks)
		r.Post("/decks", cfg.Decks.ImportDeck)
		r.Post("/decks/{deckID}/reset", cfg.Decks.ResetDeck)
		r.Post("/decks/{deckID}/sessions", cfg.Sessions.StartSession)

		r.Get("/cards/{cardID}/preview", cfg.Decks.PreviewCard)
		r.Get("/cards/{cardID}/history", cfg.Decks.CardHistory)
		r.Post("/cards/{cardID}/postpone", cfg.Decks.PostponeCard)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", cfg.Sessions.GetSession)
			r.Delete("/", cfg.Sessions.EndSession)
			r.Get("/current", cfg.Sessions.GetCurrentCard)
			r.Post("/rate", cfg.Sessions.Rate)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
