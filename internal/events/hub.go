// Package events pushes session snapshots to browser tabs over WebSocket.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/studylock/studylock/internal/identity"
	"github.com/studylock/studylock/internal/session"
)

const writeTimeout = 5 * time.Second

// Event is the message sent to subscribers.
type Event struct {
	Type     string           `json:"type"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// Sessions resolves the session a subscriber belongs to.
type Sessions interface {
	GetOrCreate(key session.Key) *session.Session
}

// Hub tracks one WebSocket subscriber per user and tab.
type Hub struct {
	mu            sync.RWMutex
	active        map[string]map[string]*websocket.Conn
	sessions      Sessions
	allowedOrigin string
	isDev         bool
}

// NewHub creates a hub serving snapshots from sessions.
func NewHub(sessions Sessions, allowedOrigin string, isDev bool) *Hub {
	return &Hub{
		active:        make(map[string]map[string]*websocket.Conn),
		sessions:      sessions,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

func (h *Hub) register(key session.Key, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[key.UserID]; !exists {
		h.active[key.UserID] = make(map[string]*websocket.Conn)
	}
	if existing, exists := h.active[key.UserID][key.SessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "subscriber replaced")
	}
	h.active[key.UserID][key.SessionID] = conn
	slog.Debug("Event subscriber registered", "user_id", key.UserID, "session_id", key.SessionID)
}

func (h *Hub) unregister(key session.Key, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.active[key.UserID]; ok {
		if current, exists := subs[key.SessionID]; exists && current == conn {
			delete(subs, key.SessionID)
			if len(subs) == 0 {
				delete(h.active, key.UserID)
			}
			slog.Debug("Event subscriber unregistered", "user_id", key.UserID, "session_id", key.SessionID)
		}
	}
}

func (h *Hub) conn(key session.Key) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if subs, ok := h.active[key.UserID]; ok {
		return subs[key.SessionID]
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.active {
		n += len(subs)
	}
	return n
}

// Publish implements session.Publisher.
func (h *Hub) Publish(key session.Key, snap session.Snapshot) {
	conn := h.conn(key)
	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, Event{Type: "snapshot", Snapshot: snap}); err != nil {
		slog.Debug("Failed to publish snapshot", "user_id", key.UserID, "session_id", key.SessionID, "error", err)
	}
}

// CloseSession disconnects the subscriber of an evicted session.
func (h *Hub) CloseSession(key session.Key) {
	h.mu.Lock()
	subs, ok := h.active[key.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	conn := subs[key.SessionID]
	delete(subs, key.SessionID)
	if len(subs) == 0 {
		delete(h.active, key.UserID)
	}
	h.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "session expired")
		slog.Info("Event subscriber closed", "user_id", key.UserID, "session_id", key.SessionID)
	}
}

// ServeHTTP upgrades the request and streams snapshots until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := session.Key{
		UserID:    identity.UserIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", key.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", key.UserID)
		}
	}()

	h.register(key, ws)
	defer h.unregister(key, ws)

	// The client never sends; CloseRead handles control frames and reports disconnects.
	ctx := ws.CloseRead(r.Context())

	snap := h.sessions.GetOrCreate(key).Snapshot()
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	err = wsjson.Write(writeCtx, ws, Event{Type: "snapshot", Snapshot: snap})
	cancel()
	if err != nil {
		slog.Debug("Failed to send initial snapshot", "error", err, "user_id", key.UserID)
		return
	}

	<-ctx.Done()
	slog.Debug("Event stream ended", "user_id", key.UserID, "session_id", key.SessionID)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
