// Package api provides HTTP handlers for the StudyLock API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/identity"
	"github.com/studylock/studylock/internal/session"
	"github.com/studylock/studylock/internal/store"
)

const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	sessions *session.Manager
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, sessions *session.Manager) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError writes err with the status its kind maps to.
func DomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	Error(w, status, msg)
}

// StatusFor maps validation errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrLanguageNotSelected),
		errors.Is(err, domain.ErrLanguageAlreadySelected),
		errors.Is(err, domain.ErrExchangePending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAppNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownIcon):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownLanguage),
		errors.Is(err, domain.ErrUnknownTab),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("invalid request body")

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// session returns the dashboard session of the requesting tab.
func (h *Handler) session(r *http.Request) *session.Session {
	return h.sessions.GetOrCreate(sessionKey(r))
}

func sessionKey(r *http.Request) session.Key {
	return session.Key{
		UserID:    identity.UserIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}
}
