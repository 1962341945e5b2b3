//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studylock/studylock/internal/agent"
	"github.com/studylock/studylock/internal/domain"
	"github.com/studylock/studylock/internal/i18n"
	"github.com/studylock/studylock/internal/identity"
	"github.com/studylock/studylock/internal/session"
	"github.com/studylock/studylock/internal/store"
)

type fakeRepo struct {
	store.Repository

	mu      sync.Mutex
	records []*domain.ExchangeRecord
	pingErr error
}

func (f *fakeRepo) RecordExchange(_ context.Context, rec *domain.ExchangeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRepo) GetExchangeStats(_ context.Context, userID string) (*domain.ExchangeStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.ExchangeStats{}
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		stats.Total++
		if rec.Outcome == domain.OutcomeReply {
			stats.Replies++
		} else {
			stats.Fallbacks++
		}
	}
	return stats, nil
}

func (f *fakeRepo) Ping(context.Context) error {
	return f.pingErr
}

type testEnv struct {
	repo    *fakeRepo
	router  http.Handler
	calls   *int
	mu      *sync.Mutex
	limiter *RateLimiter
}

func newTestEnv(t *testing.T, gen agent.Generator, limit int) *testEnv {
	t.Helper()
	repo := &fakeRepo{}
	var mu sync.Mutex
	calls := 0
	if gen == nil {
		gen = agent.GeneratorFunc(func(context.Context, agent.GenerateRequest) (string, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return "Try a 25 minute focus block.", nil
		})
	}

	mgr := session.NewManager(session.Deps{
		Generator: gen,
		Catalog:   i18n.Default(),
		Recorder:  agent.NewLedgerRecorder(repo, nil),
	})
	base := NewHandler(repo, mgr)
	limiter := NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			userID := req.Header.Get("X-Test-User")
			if userID == "" {
				userID = "anon_test"
			}
			ctx := identity.WithIdentity(req.Context(), userID, req.Header.Get(identity.SessionHeaderName))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewDashboardHandler(base, i18n.Default(), true).RegisterRoutes(r)
	NewAssistantHandler(base, limiter).RegisterRoutes(r)
	NewHealthHandler(base).RegisterRoutes(r)

	return &testEnv{repo: repo, router: r, calls: &calls, mu: &mu, limiter: limiter}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.SessionHeaderName, "tab-1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) selectEnglish(t *testing.T) {
	t.Helper()
	if rec := e.do(t, http.MethodPost, "/api/session/language", `{"language":"english"}`); rec.Code != http.StatusOK {
		t.Fatalf("select language: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrLanguageNotSelected, http.StatusConflict},
		{domain.ErrLanguageAlreadySelected, http.StatusConflict},
		{domain.ErrExchangePending, http.StatusConflict},
		{fmt.Errorf("%w: %q", domain.ErrAppNotFound, "9"), http.StatusNotFound},
		{domain.ErrUnknownIcon, http.StatusUnprocessableEntity},
		{domain.ErrUnknownLanguage, http.StatusBadRequest},
		{domain.ErrUnknownTab, http.StatusBadRequest},
		{domain.ErrEmptyMessage, http.StatusBadRequest},
		{errBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDashboardRequiresLanguage(t *testing.T) {
	env := newTestEnv(t, nil, 10)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/apps", ""},
		{http.MethodGet, "/api/usage", ""},
		{http.MethodPost, "/api/apps/1/toggle", ""},
		{http.MethodPut, "/api/session/tab", `{"tab":"apps"}`},
		{http.MethodGet, "/api/assistant/transcript", ""},
		{http.MethodGet, "/api/strings", ""},
	} {
		if rec := env.do(t, tc.method, tc.path, tc.body); rec.Code != http.StatusConflict {
			t.Errorf("%s %s: status %d, want 409", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSelectLanguageFlow(t *testing.T) {
	env := newTestEnv(t, nil, 10)

	rec := env.do(t, http.MethodPost, "/api/session/language", `{"language":"english"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	snap := decode[session.Snapshot](t, rec)
	if snap.Language != domain.LanguageEnglish || snap.Tab != domain.TabOverview || len(snap.Apps) != 5 || len(snap.Transcript) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if rec := env.do(t, http.MethodPost, "/api/session/language", `{"language":"hindi"}`); rec.Code != http.StatusConflict {
		t.Fatalf("switching language: status %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/session/language", `{"language":"french"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown language: status %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/session/language", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/session/tab", `{"tab":"apps"}`)
	if rec.Code != http.StatusOK || decode[session.Snapshot](t, rec).Tab != domain.TabApps {
		t.Fatalf("set tab failed: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/session/tab", `{"tab":"settings"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tab: status %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/session/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if snap := decode[session.Snapshot](t, rec); snap.Language != "" || len(snap.Apps) != 0 {
		t.Fatalf("unexpected snapshot after logout: %+v", snap)
	}
	env.selectEnglish(t)
}

func TestAppsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, 10)
	env.selectEnglish(t)

	rec := env.do(t, http.MethodGet, "/api/apps/top", "")
	top := decode[struct {
		Apps []domain.MonitoredApp `json:"apps"`
	}](t, rec)
	var ids []string
	for _, app := range top.Apps {
		ids = append(ids, app.ID)
	}
	if strings.Join(ids, ",") != "2,5,1" {
		t.Fatalf("top ids = %v, want [2 5 1]", ids)
	}

	if rec := env.do(t, http.MethodGet, "/api/apps/top?n=0", ""); !strings.Contains(rec.Body.String(), `"apps":[]`) {
		t.Fatalf("n=0 should yield empty list, got %s", rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/apps/top?n=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("n=x: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/apps/2/toggle", "")
	if rec.Code != http.StatusOK || !decode[domain.MonitoredApp](t, rec).Blocked {
		t.Fatalf("toggle failed: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/apps/99/toggle", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing app: status %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/apps/2/icon", `{"icon":"fas fa-book"}`)
	if rec.Code != http.StatusOK || decode[domain.MonitoredApp](t, rec).Icon != "fas fa-book" {
		t.Fatalf("set icon failed: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/api/apps/2/icon", `{"icon":"fas fa-rocket"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown icon: status %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/usage", "")
	usage := decode[struct {
		Trend        []domain.UsagePoint `json:"trend"`
		BlockedCount int                 `json:"blocked_count"`
		FocusMinutes int                 `json:"focus_minutes"`
	}](t, rec)
	if len(usage.Trend) != 7 || usage.BlockedCount != 4 || usage.FocusMinutes != 275 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
}

func TestStringsAndIcons(t *testing.T) {
	env := newTestEnv(t, nil, 10)

	rec := env.do(t, http.MethodGet, "/api/strings?lang=hindi", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := decode[i18n.Strings](t, rec); got.Greeting != i18n.Default().For(domain.LanguageHindi).Greeting {
		t.Fatalf("unexpected greeting %q", got.Greeting)
	}

	rec = env.do(t, http.MethodGet, "/api/icons", "")
	icons := decode[struct {
		Icons []string `json:"icons"`
	}](t, rec)
	if len(icons.Icons) != len(domain.IconPalette) {
		t.Fatalf("got %d icons", len(icons.Icons))
	}

	rec = env.do(t, http.MethodGet, "/api/config", "")
	cfg := decode[map[string]interface{}](t, rec)
	if cfg["ai_enabled"] != true {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestPostMessageWait(t *testing.T) {
	env := newTestEnv(t, nil, 10)
	env.selectEnglish(t)

	rec := env.do(t, http.MethodPost, "/api/assistant/messages?wait=1", `{"message":"How do I focus?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Reply    domain.ChatTurn  `json:"reply"`
		Snapshot session.Snapshot `json:"snapshot"`
	}](t, rec)
	if resp.Reply.Text != "Try a 25 minute focus block." || len(resp.Snapshot.Transcript) != 3 || resp.Snapshot.Pending {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec = env.do(t, http.MethodGet, "/api/assistant/stats", "")
	stats := decode[domain.ExchangeStats](t, rec)
	if stats.Total != 1 || stats.Replies != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPostMessageEmptyIsRejected(t *testing.T) {
	env := newTestEnv(t, nil, 10)
	env.selectEnglish(t)

	if rec := env.do(t, http.MethodPost, "/api/assistant/messages", `{"message":"   "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	env.mu.Lock()
	defer env.mu.Unlock()
	if *env.calls != 0 {
		t.Fatalf("generator called %d times", *env.calls)
	}
}

func TestPostMessageAsyncAndPending(t *testing.T) {
	release := make(chan struct{})
	gen := agent.GeneratorFunc(func(context.Context, agent.GenerateRequest) (string, error) {
		<-release
		return "", errors.New("provider down")
	})
	env := newTestEnv(t, gen, 10)
	env.selectEnglish(t)

	rec := env.do(t, http.MethodPost, "/api/assistant/messages", `{"message":"hello"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d, want 202", rec.Code)
	}
	if snap := decode[session.Snapshot](t, rec); !snap.Pending || len(snap.Transcript) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if rec := env.do(t, http.MethodPost, "/api/assistant/messages", `{"message":"again"}`); rec.Code != http.StatusConflict {
		t.Fatalf("second message: status %d, want 409", rec.Code)
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := env.do(t, http.MethodGet, "/api/assistant/transcript", "")
		body := decode[struct {
			Transcript []domain.ChatTurn `json:"transcript"`
			Pending    bool              `json:"pending"`
		}](t, rec)
		if !body.Pending {
			fallback := i18n.Default().For(domain.LanguageEnglish).Fallback
			if len(body.Transcript) != 3 || body.Transcript[2].Text != fallback {
				t.Fatalf("unexpected transcript: %+v", body.Transcript)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("exchange did not resolve")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPostMessageRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, 1)
	env.selectEnglish(t)

	if rec := env.do(t, http.MethodPost, "/api/assistant/messages?wait=1", `{"message":"one"}`); rec.Code != http.StatusOK {
		t.Fatalf("first: status %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/assistant/messages?wait=1", `{"message":"two"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status %d, want 429", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, 10)
	if rec := env.do(t, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	env.repo.pingErr = errors.New("closed")
	if rec := env.do(t, http.MethodGet, "/api/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }

	if !rl.Allow("u") || !rl.Allow("u") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("u") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("other") {
		t.Fatal("limits are per key")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("u") {
		t.Fatal("window should have expired")
	}

	now = now.Add(2 * time.Minute)
	rl.evict()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.requests) != 0 {
		t.Fatalf("expected eviction to empty the map, got %d keys", len(rl.requests))
	}
}
