package agent

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/studylock/studylock/internal/domain"
)

// Recorder observes completed exchanges. Implementations must not block for
// long: Record runs before the waiting caller is released.
type Recorder interface {
	Record(ctx context.Context, result Result)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, Result) {}

// Recorders fans a result out to every non-nil recorder in order.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(ctx context.Context, result Result) {
	for _, r := range rs {
		if r != nil {
			r.Record(ctx, result)
		}
	}
}

// LedgerWriter persists exchange metadata.
type LedgerWriter interface {
	RecordExchange(ctx context.Context, rec *domain.ExchangeRecord) error
}

// LedgerRecorder writes a metadata-only ledger entry per exchange.
type LedgerRecorder struct {
	writer LedgerWriter
	logger *slog.Logger
}

// NewLedgerRecorder creates a recorder backed by w.
func NewLedgerRecorder(w LedgerWriter, logger *slog.Logger) *LedgerRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerRecorder{writer: w, logger: logger}
}

// Record implements Recorder. Write failures are logged and dropped.
func (l *LedgerRecorder) Record(ctx context.Context, result Result) {
	rec := &domain.ExchangeRecord{
		ExchangeID: result.ExchangeID,
		UserID:     result.Owner.UserID,
		SessionID:  result.Owner.SessionID,
		Language:   result.Language,
		Outcome:    result.Outcome,
		UserChars:  utf8.RuneCountInString(result.UserText),
		ReplyChars: utf8.RuneCountInString(result.Reply.Text),
		Latency:    result.Latency,
		CreatedAt:  result.StartedAt,
	}
	if err := l.writer.RecordExchange(ctx, rec); err != nil {
		l.logger.Warn("failed to record exchange",
			"exchange_id", result.ExchangeID,
			"user_id", result.Owner.UserID,
			"error", err,
		)
	}
}
