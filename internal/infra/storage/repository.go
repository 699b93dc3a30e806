package storage

import (
	"context"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
)

// ProbeRecord is one stored probe result.
type ProbeRecord struct {
	SweepID string
	domain.HealthResult
}

// HistoryRepository stores probe results and failover transitions.
type HistoryRepository interface {
	// SaveProbes stores the results of one sweep
	SaveProbes(ctx context.Context, sweepID string, results []domain.HealthResult) error

	// SaveTransition stores a failover transition
	SaveTransition(ctx context.Context, t failover.Transition) error

	// RecentProbes returns the newest probe records of a chain, newest first
	RecentProbes(ctx context.Context, chain domain.ChainAlias, limit int) ([]ProbeRecord, error)

	// RecentTransitions returns the newest transitions of a chain, newest first
	RecentTransitions(ctx context.Context, chain domain.ChainAlias, limit int) ([]failover.Transition, error)

	// DeleteOlderThan removes history recorded before threshold
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}
