package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/deckstudy/internal/service/study_session"
)

// ControllerFactory builds a fresh controller for a new session.
type ControllerFactory func() *study_session.Controller

type sessionEntry struct {
	controller *study_session.Controller
	lastUsed   time.Time
}

// SessionRegistry tracks the study sessions started through the API. Each
// session owns its own Controller; the registry only guards the map.
type SessionRegistry struct {
	newController ControllerFactory
	clock         func() time.Time
	logger        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(factory ControllerFactory, logger *slog.Logger) *SessionRegistry {
	if factory == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("controller factory cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionRegistry{
		newController: factory,
		clock:         time.Now,
		logger:        logger.With(slog.String("component", "session_registry")),
		sessions:      make(map[string]*sessionEntry),
	}
}

// Start begins a session on a new controller and registers it under the
// session ID. Nothing is registered when StartSession fails.
func (r *SessionRegistry) Start(
	ctx context.Context,
	deckID string,
	filters study_session.Filters,
) (*study_session.Controller, *study_session.SessionHandle, error) {
	controller := r.newController()

	handle, err := controller.StartSession(ctx, deckID, filters)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	r.sessions[handle.ID] = &sessionEntry{controller: controller, lastUsed: r.clock()}
	r.mu.Unlock()

	return controller, handle, nil
}

// Get returns the controller of a session, or ErrSessionNotFound.
func (r *SessionRegistry) Get(sessionID string) (*study_session.Controller, error) {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	entry.lastUsed = r.clock()
	r.mu.Unlock()

	return entry.controller, nil
}

// End returns the session's controller to setup and forgets it. Reviews
// already saved are kept.
func (r *SessionRegistry) End(sessionID string) error {
	r.mu.Lock()
	entry, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	entry.controller.ReturnToSetup()
	return nil
}

// Len returns the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Prune forgets completed sessions and sessions idle for longer than maxIdle.
// It returns how many sessions were removed.
func (r *SessionRegistry) Prune(maxIdle time.Duration) int {
	cutoff := r.clock().Add(-maxIdle)

	r.mu.Lock()
	var stale []*sessionEntry
	for id, entry := range r.sessions {
		if entry.controller.State() == study_session.StateComplete || entry.lastUsed.Before(cutoff) {
			stale = append(stale, entry)
			delete(r.sessions, id)
		}
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	for _, entry := range stale {
		entry.controller.ReturnToSetup()
	}

	if len(stale) > 0 {
		r.logger.Info("pruned study sessions",
			slog.Int("removed", len(stale)),
			slog.Int("remaining", remaining))
	}
	return len(stale)
}
