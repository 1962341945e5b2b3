package session

import (
	"context"
	"log/slog"
	"time"
)

// ExchangePruner deletes old exchange ledger entries.
type ExchangePruner interface {
	CleanupExchanges(ctx context.Context, retention time.Duration) (int64, error)
}

// TTLConfig controls the idle session sweep.
type TTLConfig struct {
	Interval  time.Duration
	TTL       time.Duration
	Retention time.Duration
}

// CleanupCallback is called for every session evicted by the TTL worker.
type CleanupCallback func(key Key)

// StartTTLWorker runs a background goroutine that periodically evicts idle
// sessions and prunes the exchange ledger.
func StartTTLWorker(ctx context.Context, mgr *Manager, pruner ExchangePruner, cfg TTLConfig, onCleanup CleanupCallback) {
	ticker := time.NewTicker(cfg.Interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", cfg.Interval, "ttl", cfg.TTL)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, mgr, pruner, cfg, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, mgr *Manager, pruner ExchangePruner, cfg TTLConfig, onCleanup CleanupCallback) {
	expired := mgr.Sweep(cfg.TTL)
	for _, key := range expired {
		slog.Info("TTL worker evicted idle session",
			"user_id", key.UserID,
			"session_id", key.SessionID)
		if onCleanup != nil {
			onCleanup(key)
		}
	}

	if pruner == nil || cfg.Retention <= 0 {
		return
	}
	if deleted, err := pruner.CleanupExchanges(ctx, cfg.Retention); err != nil {
		slog.Error("TTL worker failed to prune exchange ledger", "error", err)
	} else if deleted > 0 {
		slog.Info("TTL worker pruned exchange ledger", "count", deleted)
	}
}
