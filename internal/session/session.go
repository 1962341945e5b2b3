// Package session owns the per-tab dashboard state: the selected language,
// the active tab and, once a language is picked, the app registry and the
// assistant exchange.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/registry"
)

// Key identifies a session by anonymous user and browser tab.
type Key struct {
	UserID    string
	SessionID string
}

// Deps are the collaborators every session is built with.
type Deps struct {
	Generator agent.Generator
	Catalog   *i18n.Catalog
	Recorder  agent.Recorder
	OnToggle  func(key Key, app domain.MonitoredApp)
	Logger    *slog.Logger
}

// Snapshot is a point-in-time view of a session. Language is empty while
// the picker is shown.
type Snapshot struct {
	SessionID  string                `json:"session_id"`
	Language   domain.Language       `json:"language"`
	Tab        domain.Tab            `json:"tab"`
	Apps       []domain.MonitoredApp `json:"apps"`
	Transcript []domain.ChatTurn     `json:"transcript"`
	Pending    bool                  `json:"pending"`
}

// Session is the dashboard state of one tab.
type Session struct {
	key  Key
	deps Deps

	mu       sync.Mutex
	language domain.Language
	tab      domain.Tab
	registry *registry.Registry
	exchange *agent.Exchange
	lastSeen time.Time

	notifyMu sync.RWMutex
	onChange func(*Session)
}

func newSession(key Key, deps Deps, now time.Time) *Session {
	if deps.Catalog == nil {
		deps.Catalog = i18n.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		key:      key,
		deps:     deps,
		tab:      domain.DefaultTab,
		lastSeen: now,
	}
}

// New returns a standalone session, for clients that do not go through a Manager.
func New(key Key, deps Deps) *Session {
	return newSession(key, deps, time.Now())
}

// Key returns the session key.
func (s *Session) Key() Key {
	return s.key
}

// SetOnChange registers fn to be called after every state change.
func (s *Session) SetOnChange(fn func(*Session)) {
	s.notifyMu.Lock()
	s.onChange = fn
	s.notifyMu.Unlock()
}

func (s *Session) notify() {
	s.notifyMu.RLock()
	fn := s.onChange
	s.notifyMu.RUnlock()
	if fn != nil {
		fn(s)
	}
}

// SelectLanguage picks the display language and seeds a fresh registry and
// exchange. Picking the current language again is a no-op; picking another
// one before Logout fails with domain.ErrLanguageAlreadySelected.
func (s *Session) SelectLanguage(lang domain.Language) error {
	if !lang.Valid() {
		return domain.ErrUnknownLanguage
	}

	s.mu.Lock()
	if s.language != "" {
		current := s.language
		s.mu.Unlock()
		if current == lang {
			return nil
		}
		return domain.ErrLanguageAlreadySelected
	}

	strs := s.deps.Catalog.For(lang)
	s.language = lang
	s.tab = domain.DefaultTab
	s.registry = registry.NewSeeded(registry.WithToggleObserver(s.toggled))
	s.exchange = agent.NewExchange(s.deps.Generator,
		agent.Seed{Language: lang, Greeting: strs.Greeting, Fallback: strs.Fallback},
		agent.WithOwner(agent.Owner{UserID: s.key.UserID, SessionID: s.key.SessionID}),
		agent.WithRecorder(s.deps.Recorder),
		agent.WithLogger(s.deps.Logger),
		agent.WithOnChange(s.notify),
	)
	s.mu.Unlock()

	s.deps.Logger.Info("Language selected",
		"user_id", s.key.UserID,
		"session_id", s.key.SessionID,
		"language", lang)
	s.notify()
	return nil
}

func (s *Session) toggled(app domain.MonitoredApp) {
	if s.deps.OnToggle != nil {
		s.deps.OnToggle(s.key, app)
	}
}

// Logout returns to the language picker, dropping the registry and the
// transcript. A request in flight is left to finish into the dropped
// transcript.
func (s *Session) Logout() {
	s.mu.Lock()
	s.language = ""
	s.tab = domain.DefaultTab
	s.registry = nil
	s.exchange = nil
	s.mu.Unlock()
	s.notify()
}

// SetTab switches the active dashboard tab.
func (s *Session) SetTab(tab domain.Tab) error {
	tab, err := domain.ParseTab(string(tab))
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.language == "" {
		s.mu.Unlock()
		return domain.ErrLanguageNotSelected
	}
	s.tab = tab
	s.mu.Unlock()
	s.notify()
	return nil
}

// Language returns the selected language and whether one is selected.
func (s *Session) Language() (domain.Language, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language, s.language != ""
}

// Tab returns the active tab.
func (s *Session) Tab() domain.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// Registry returns the app registry of the current language selection.
func (s *Session) Registry() (*registry.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return nil, domain.ErrLanguageNotSelected
	}
	return s.registry, nil
}

// Exchange returns the assistant exchange of the current language selection.
func (s *Session) Exchange() (*agent.Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exchange == nil {
		return nil, domain.ErrLanguageNotSelected
	}
	return s.exchange, nil
}

// Strings returns the localized strings of the selected language.
func (s *Session) Strings() (i18n.Strings, error) {
	lang, ok := s.Language()
	if !ok {
		return i18n.Strings{}, domain.ErrLanguageNotSelected
	}
	return s.deps.Catalog.For(lang), nil
}

// ToggleBlocked flips the blocked flag of an app.
func (s *Session) ToggleBlocked(id string) (domain.MonitoredApp, error) {
	reg, err := s.Registry()
	if err != nil {
		return domain.MonitoredApp{}, err
	}
	app, err := reg.ToggleBlocked(id)
	if err != nil {
		return domain.MonitoredApp{}, err
	}
	s.notify()
	return app, nil
}

// SetIcon changes the icon of an app.
func (s *Session) SetIcon(id string, icon domain.IconRef) (domain.MonitoredApp, error) {
	reg, err := s.Registry()
	if err != nil {
		return domain.MonitoredApp{}, err
	}
	app, err := reg.SetIcon(id, icon)
	if err != nil {
		return domain.MonitoredApp{}, err
	}
	s.notify()
	return app, nil
}

// Ask starts an assistant exchange.
func (s *Session) Ask(ctx context.Context, text string) (*agent.Pending, error) {
	ex, err := s.Exchange()
	if err != nil {
		return nil, err
	}
	return ex.Start(ctx, text)
}

// Pending reports whether an assistant request is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	ex := s.exchange
	s.mu.Unlock()
	return ex != nil && ex.State() == agent.StatePending
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

// IdleFor returns how long the session has been inactive at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		SessionID:  s.key.SessionID,
		Language:   s.language,
		Tab:        s.tab,
		Apps:       []domain.MonitoredApp{},
		Transcript: []domain.ChatTurn{},
	}
	reg, ex := s.registry, s.exchange
	s.mu.Unlock()

	if reg != nil {
		snap.Apps = reg.Apps()
	}
	if ex != nil {
		snap.Transcript = ex.Transcript()
		snap.Pending = ex.State() == agent.StatePending
	}
	return snap
}
