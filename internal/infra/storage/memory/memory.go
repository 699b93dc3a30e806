package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/infra/storage"
)

// DefaultMaxPerChain bounds each chain's history.
const DefaultMaxPerChain = 1000

// HistoryRepo is an in-memory storage.HistoryRepository used when no
// database is configured.
type HistoryRepo struct {
	mu          sync.RWMutex
	probes      map[domain.ChainAlias][]storage.ProbeRecord
	transitions map[domain.ChainAlias][]failover.Transition
	maxPerChain int
}

// NewHistoryRepo creates an empty repository.
func NewHistoryRepo(maxPerChain int) *HistoryRepo {
	if maxPerChain <= 0 {
		maxPerChain = DefaultMaxPerChain
	}
	return &HistoryRepo{
		probes:      make(map[domain.ChainAlias][]storage.ProbeRecord),
		transitions: make(map[domain.ChainAlias][]failover.Transition),
		maxPerChain: maxPerChain,
	}
}

func (r *HistoryRepo) SaveProbes(ctx context.Context, sweepID string, results []domain.HealthResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		list := append(r.probes[res.Chain], storage.ProbeRecord{SweepID: sweepID, HealthResult: res})
		if len(list) > r.maxPerChain {
			list = list[len(list)-r.maxPerChain:]
		}
		r.probes[res.Chain] = list
	}
	return nil
}

func (r *HistoryRepo) SaveTransition(ctx context.Context, t failover.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.transitions[t.Chain], t)
	if len(list) > r.maxPerChain {
		list = list[len(list)-r.maxPerChain:]
	}
	r.transitions[t.Chain] = list
	return nil
}

func (r *HistoryRepo) RecentProbes(ctx context.Context, chain domain.ChainAlias, limit int) ([]storage.ProbeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.probes[chain], limit), nil
}

func (r *HistoryRepo) RecentTransitions(ctx context.Context, chain domain.ChainAlias, limit int) ([]failover.Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newestFirst(r.transitions[chain], limit), nil
}

func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for chain, list := range r.probes {
		kept := list[:0]
		for _, p := range list {
			if p.CheckedAt.Before(threshold) {
				deleted++
				continue
			}
			kept = append(kept, p)
		}
		r.probes[chain] = kept
	}
	for chain, list := range r.transitions {
		kept := list[:0]
		for _, t := range list {
			if t.At.Before(threshold) {
				deleted++
				continue
			}
			kept = append(kept, t)
		}
		r.transitions[chain] = kept
	}
	return deleted, nil
}

func newestFirst[T any](list []T, limit int) []T {
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]T, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out
}
