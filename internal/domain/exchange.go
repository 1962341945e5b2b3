package domain

import "time"

// Outcome describes how an assistant exchange resolved.
type Outcome string

const (
	OutcomeReply    Outcome = "reply"
	OutcomeFallback Outcome = "fallback"
)

// ExchangeRecord is the ledger entry for one completed exchange.
// Message text is never stored.
type ExchangeRecord struct {
	ExchangeID string
	UserID     string
	SessionID  string
	Language   Language
	Outcome    Outcome
	UserChars  int
	ReplyChars int
	Latency    time.Duration
	CreatedAt  time.Time
}

// ExchangeStats aggregates a user's ledger entries.
type ExchangeStats struct {
	Total      int64         `json:"total"`
	Replies    int64         `json:"replies"`
	Fallbacks  int64         `json:"fallbacks"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	LastAt     *time.Time    `json:"last_at,omitempty"`
}
