package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studylock/studylock/internal/domain"
)

type fakeLedger struct {
	recs []*domain.ExchangeRecord
	err  error
}

func (f *fakeLedger) RecordExchange(_ context.Context, rec *domain.ExchangeRecord) error {
	f.recs = append(f.recs, rec)
	return f.err
}

func TestLedgerRecorderMapsResult(t *testing.T) {
	ledger := &fakeLedger{}
	started := time.Now()
	NewLedgerRecorder(ledger, nil).Record(context.Background(), Result{
		ExchangeID: "ex-1",
		Owner:      Owner{UserID: "anon_a", SessionID: "tab-1"},
		Language:   domain.LanguageHindi,
		UserText:   "नमस्ते",
		Reply:      domain.ChatTurn{Role: domain.RoleAssistant, Text: "hello"},
		Outcome:    domain.OutcomeReply,
		StartedAt:  started,
		Latency:    42 * time.Millisecond,
	})

	if len(ledger.recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(ledger.recs))
	}
	rec := ledger.recs[0]
	if rec.UserChars != 6 {
		t.Errorf("UserChars = %d, want rune count 6", rec.UserChars)
	}
	if rec.ReplyChars != 5 || rec.Latency != 42*time.Millisecond || !rec.CreatedAt.Equal(started) {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.UserID != "anon_a" || rec.SessionID != "tab-1" || rec.Language != domain.LanguageHindi {
		t.Errorf("unexpected owner fields: %+v", rec)
	}
}

func TestLedgerRecorderSwallowsErrors(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("database is locked")}
	NewLedgerRecorder(ledger, nil).Record(context.Background(), Result{ExchangeID: "ex-2"})
	if len(ledger.recs) != 1 {
		t.Fatal("expected write attempt")
	}
}

func TestRecordersFanOut(t *testing.T) {
	a, b := &fakeRecorder{}, &fakeRecorder{}
	Recorders{a, nil, b}.Record(context.Background(), Result{ExchangeID: "ex-3"})
	if len(a.all()) != 1 || len(b.all()) != 1 {
		t.Fatal("expected both recorders to receive the result")
	}
}
