// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/studylock/studylock/internal/domain"
)

// Repository persists anonymous identities and the exchange ledger.
// Dashboard state is never stored.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// RecordExchange appends an entry to the exchange ledger.
	RecordExchange(ctx context.Context, rec *domain.ExchangeRecord) error

	// GetExchangeStats aggregates the ledger entries of a user.
	GetExchangeStats(ctx context.Context, userID string) (*domain.ExchangeStats, error)

	// CleanupExchanges removes ledger entries older than retention.
	CleanupExchanges(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
