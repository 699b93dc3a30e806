package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
)

// Recorder persists failover events into a HistoryRepository.
type Recorder struct {
	repo    HistoryRepository
	timeout time.Duration
	log     *slog.Logger
}

// NewRecorder creates a failover.Recorder writing to repo.
func NewRecorder(repo HistoryRepository, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		repo:    repo,
		timeout: 5 * time.Second,
		log:     log.With("component", "history"),
	}
}

// OnTransition stores t.
func (r *Recorder) OnTransition(t failover.Transition) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.SaveTransition(ctx, t); err != nil {
		r.log.Warn("Failed to save transition", "chain", t.Chain, "error", err)
	}
}

// OnSweep stores the sweep results under a fresh sweep id.
func (r *Recorder) OnSweep(chain domain.ChainAlias, results []domain.HealthResult) {
	if len(results) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.SaveProbes(ctx, uuid.NewString(), results); err != nil {
		r.log.Warn("Failed to save probe results", "chain", chain, "error", err)
	}
}
