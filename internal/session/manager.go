package session

import (
	"log/slog"
	"sync"
	"time"
)

// Publisher receives session snapshots after every change.
type Publisher interface {
	Publish(key Key, snap Snapshot)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLifecycle registers callbacks for session creation and removal.
func WithLifecycle(onOpen, onClose func(Key)) ManagerOption {
	return func(m *Manager) {
		m.onOpen = onOpen
		m.onClose = onClose
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager keeps the live sessions, keyed by user and tab.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[Key]*Session
	deps      Deps
	publisher Publisher
	onOpen    func(Key)
	onClose   func(Key)
	now       func() time.Time
}

// NewManager creates an empty session manager.
func NewManager(deps Deps, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[Key]*Session),
		deps:     deps,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetPublisher sets the sink for snapshot updates.
func (m *Manager) SetPublisher(p Publisher) {
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(s *Session) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if p != nil {
		p.Publish(s.Key(), s.Snapshot())
	}
}

// GetOrCreate returns the session for key, creating it on first access.
// The session is touched either way.
func (m *Manager) GetOrCreate(key Key) *Session {
	now := m.now()

	m.mu.RLock()
	s, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		s.Touch(now)
		return s
	}

	m.mu.Lock()
	if s, ok = m.sessions[key]; ok {
		m.mu.Unlock()
		s.Touch(now)
		return s
	}
	s = newSession(key, m.deps, now)
	s.SetOnChange(m.publish)
	m.sessions[key] = s
	m.mu.Unlock()

	slog.Debug("Session created", "user_id", key.UserID, "session_id", key.SessionID)
	if m.onOpen != nil {
		m.onOpen(key)
	}
	return s
}

// Get returns the session for key if it exists.
func (m *Manager) Get(key Key) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	return s, ok
}

// Remove drops the session for key.
func (m *Manager) Remove(key Key) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.SetOnChange(nil)
	if m.onClose != nil {
		m.onClose(key)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than ttl and returns their keys.
// Sessions with a request in flight are kept.
func (m *Manager) Sweep(ttl time.Duration) []Key {
	now := m.now()

	m.mu.RLock()
	var expired []Key
	for key, s := range m.sessions {
		if s.IdleFor(now) > ttl && !s.Pending() {
			expired = append(expired, key)
		}
	}
	m.mu.RUnlock()

	for _, key := range expired {
		m.Remove(key)
	}
	return expired
}
