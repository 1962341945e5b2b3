package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/store"
)

type fakeRepo struct {
	store.Repository

	mu       sync.Mutex
	users    map[string]*domain.User
	getErr   error
	lastSeen map[string]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]*domain.User{}, lastSeen: map[string]time.Time{}}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.users[userID], nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, userID string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeen[userID] = t
	return nil
}

func captureIdentity(t *testing.T, repo store.Repository, req *http.Request) (string, string, *httptest.ResponseRecorder) {
	t.Helper()
	var userID, sessionID string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return userID, sessionID, rec
}

func TestMiddlewareIssuesAnonymousCookie(t *testing.T) {
	repo := newFakeRepo()
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set(SessionHeaderName, "tab-1")

	userID, sessionID, rec := captureIdentity(t, repo, req)

	if !isValidAnonID(userID) {
		t.Fatalf("invalid anon id %q", userID)
	}
	if sessionID != "tab-1" {
		t.Fatalf("sessionID = %q", sessionID)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AnonCookieName || cookies[0].Value != userID {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if repo.users[userID] == nil {
		t.Fatal("expected user to be created")
	}
}

func TestMiddlewareReusesCookie(t *testing.T) {
	repo := newFakeRepo()
	id := NewAnonID()
	req := httptest.NewRequest(http.MethodGet, "/api/session?session_id=from-query", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})

	userID, sessionID, _ := captureIdentity(t, repo, req)

	if userID != id {
		t.Fatalf("userID = %q, want %q", userID, id)
	}
	if sessionID != "from-query" {
		t.Fatalf("sessionID = %q", sessionID)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	repo := newFakeRepo()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})
	req.Header.Set(SessionHeaderName, "bad id with spaces")

	userID, sessionID, _ := captureIdentity(t, repo, req)

	if userID == "admin" || !isValidAnonID(userID) {
		t.Fatalf("forged cookie accepted: %q", userID)
	}
	if sessionID != DefaultSessionIDValue {
		t.Fatalf("sessionID = %q, want default", sessionID)
	}
}

func TestMiddlewareRefreshesLastSeen(t *testing.T) {
	repo := newFakeRepo()
	id := NewAnonID()
	repo.users[id] = &domain.User{UserID: id, LastSeenAt: time.Now().Add(-time.Hour)}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})

	captureIdentity(t, repo, req)

	if _, ok := repo.lastSeen[id]; !ok {
		t.Fatal("expected last seen to be refreshed")
	}
}

func TestMiddlewareStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = errors.New("db down")

	called := false
	h := Middleware(repo, true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Fatal("next handler should not run")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeriveUsername(t *testing.T) {
	if got := deriveUsername("anon_0123456789abcdef0123456789abcdef"); got != "anon-89abcdef" {
		t.Fatalf("deriveUsername = %q", got)
	}
	if got := deriveUsername("short"); got != "anon-user" {
		t.Fatalf("deriveUsername = %q", got)
	}
}
