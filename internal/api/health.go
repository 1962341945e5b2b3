package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthHandler reports database reachability.
type HealthHandler struct {
	*Handler
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(base *Handler) *HealthHandler {
	return &HealthHandler{Handler: base}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.GetHealth)
}

// GetHealth pings the database.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unavailable",
			"database": "unreachable",
		})
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": "ok",
		"sessions": h.sessions.Len(),
	})
}
