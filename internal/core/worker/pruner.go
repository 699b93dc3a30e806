package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/rpcwatch/internal/infra/storage"
)

// Pruner deletes probe history older than the retention period.
type Pruner struct {
	repo      storage.HistoryRepository
	retention time.Duration
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(repo storage.HistoryRepository, retention time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		repo:      repo,
		retention: retention,
		log:       log.With("component", "pruner"),
	}
}

// Interval is how often the pruner runs: 10% of retention, clamped to [1m, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes everything recorded before now minus retention.
func (p *Pruner) Prune(ctx context.Context) int64 {
	threshold := time.Now().Add(-p.retention)

	deleted, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune history", "error", err)
		return 0
	}
	if deleted > 0 {
		p.log.Debug("Pruned history", "deleted", deleted, "before", threshold)
	}
	return deleted
}
