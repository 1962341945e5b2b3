package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/registry"
)

const defaultTopN = 3

// DashboardHandler serves the view state and the app registry.
type DashboardHandler struct {
	*Handler
	catalog   *i18n.Catalog
	aiEnabled bool
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(base *Handler, catalog *i18n.Catalog, aiEnabled bool) *DashboardHandler {
	if catalog == nil {
		catalog = i18n.Default()
	}
	return &DashboardHandler{Handler: base, catalog: catalog, aiEnabled: aiEnabled}
}

// RegisterRoutes registers dashboard routes.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Get("/session", h.GetSession)
		r.Post("/session/language", h.SelectLanguage)
		r.Post("/session/logout", h.Logout)
		r.Put("/session/tab", h.SetTab)
		r.Get("/strings", h.GetStrings)
		r.Get("/icons", h.GetIcons)
		r.Get("/usage", h.GetUsage)
		r.Get("/apps", h.ListApps)
		r.Get("/apps/top", h.TopDistractions)
		r.Post("/apps/{id}/toggle", h.ToggleBlocked)
		r.Put("/apps/{id}/icon", h.SetIcon)
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *DashboardHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled": h.aiEnabled,
		"languages":  domain.Languages,
		"tabs":       domain.Tabs,
	})
}

// GetSession returns the snapshot of the requesting tab.
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).Snapshot())
}

// SelectLanguage picks the display language.
func (h *DashboardHandler) SelectLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &req); err != nil {
		DomainError(w, err)
		return
	}
	lang, err := domain.ParseLanguage(req.Language)
	if err != nil {
		DomainError(w, err)
		return
	}

	s := h.session(r)
	if err := s.SelectLanguage(lang); err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

// Logout returns the tab to the language picker.
func (h *DashboardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.Logout()
	slog.Info("Session logged out", "user_id", s.Key().UserID, "session_id", s.Key().SessionID)
	JSON(w, http.StatusOK, s.Snapshot())
}

// SetTab switches the active tab.
func (h *DashboardHandler) SetTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := decodeJSON(r, &req); err != nil {
		DomainError(w, err)
		return
	}
	tab, err := domain.ParseTab(req.Tab)
	if err != nil {
		DomainError(w, err)
		return
	}

	s := h.session(r)
	if err := s.SetTab(tab); err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, s.Snapshot())
}

// GetStrings returns the localized UI text. The lang query parameter wins
// over the session language so the picker can render before a choice.
func (h *DashboardHandler) GetStrings(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("lang"); q != "" {
		lang, err := domain.ParseLanguage(q)
		if err != nil {
			DomainError(w, err)
			return
		}
		JSON(w, http.StatusOK, h.catalog.For(lang))
		return
	}

	strs, err := h.session(r).Strings()
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, strs)
}

// GetIcons returns the icon palette.
func (h *DashboardHandler) GetIcons(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"icons": domain.IconPalette})
}

// GetUsage returns the overview cards.
func (h *DashboardHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	reg, err := h.session(r).Registry()
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"trend":         registry.UsageTrend(),
		"blocked_count": reg.BlockedCount(),
		"focus_minutes": reg.TotalUsageMinutes(),
		"top":           reg.TopDistractions(defaultTopN),
	})
}

// ListApps returns the registry in insertion order.
func (h *DashboardHandler) ListApps(w http.ResponseWriter, r *http.Request) {
	reg, err := h.session(r).Registry()
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"apps": reg.Apps()})
}

// TopDistractions returns the most used apps.
func (h *DashboardHandler) TopDistractions(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			Error(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		n = v
	}

	reg, err := h.session(r).Registry()
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"apps": reg.TopDistractions(n)})
}

// ToggleBlocked flips the blocked flag of an app.
func (h *DashboardHandler) ToggleBlocked(w http.ResponseWriter, r *http.Request) {
	app, err := h.session(r).ToggleBlocked(chi.URLParam(r, "id"))
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, app)
}

// SetIcon changes the icon of an app.
func (h *DashboardHandler) SetIcon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Icon string `json:"icon"`
	}
	if err := decodeJSON(r, &req); err != nil {
		DomainError(w, err)
		return
	}

	app, err := h.session(r).SetIcon(chi.URLParam(r, "id"), domain.IconRef(req.Icon))
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, app)
}
