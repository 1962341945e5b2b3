package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/identity"
)

// AssistantHandler serves the assistant exchange.
type AssistantHandler struct {
	*Handler
	limiter *RateLimiter
}

// NewAssistantHandler creates an assistant handler. A nil limiter disables
// rate limiting.
func NewAssistantHandler(base *Handler, limiter *RateLimiter) *AssistantHandler {
	return &AssistantHandler{Handler: base, limiter: limiter}
}

// RegisterRoutes registers assistant routes.
func (h *AssistantHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/assistant", func(r chi.Router) {
		r.Get("/transcript", h.GetTranscript)
		r.Post("/messages", h.PostMessage)
		r.Get("/stats", h.GetStats)
	})
}

// GetTranscript returns the transcript and whether a reply is pending.
func (h *AssistantHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	ex, err := h.session(r).Exchange()
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"transcript": ex.Transcript(),
		"pending":    ex.State() == agent.StatePending,
	})
}

// PostMessage sends a user message. With ?wait=1 the response carries the
// reply; otherwise it returns 202 and the reply arrives over /ws/events.
func (h *AssistantHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if h.limiter != nil && !h.limiter.Allow(userID) {
		slog.Warn("Assistant rate limit exceeded", "user_id", userID)
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		DomainError(w, err)
		return
	}

	s := h.session(r)
	pending, err := s.Ask(r.Context(), req.Message)
	if err != nil {
		DomainError(w, err)
		return
	}

	if r.URL.Query().Get("wait") == "" {
		JSON(w, http.StatusAccepted, s.Snapshot())
		return
	}

	select {
	case <-pending.Done():
	case <-r.Context().Done():
		// The exchange keeps running; its reply reaches the transcript.
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"reply":    pending.Wait(),
		"snapshot": s.Snapshot(),
	})
}

// GetStats returns the exchange ledger summary of the anonymous user.
func (h *AssistantHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	stats, err := h.repo.GetExchangeStats(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load exchange stats", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	JSON(w, http.StatusOK, stats)
}
