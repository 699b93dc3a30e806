package failover

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// Sweep probes every endpoint concurrently and applies the outcome:
//   - all failed: the manager becomes exhausted and keeps its current index
//   - exhausted, or a healthier higher-priority endpoint exists: switch to the
//     lowest healthy index
//   - current failed: advance to the next healthy endpoint after it
//
// Results from a canceled sweep are discarded.
func (m *Manager) Sweep(ctx context.Context) []domain.HealthResult {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil
	}
	urls := make([]string, len(m.slots))
	for i, s := range m.slots {
		urls[i] = s.candidate.URL
	}
	m.mu.RUnlock()

	sweepID := uuid.NewString()
	start := time.Now()

	results := make([]domain.HealthResult, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			results[i] = m.prober.Probe(ctx, m.chain, url, m.cfg.ProbeTimeout)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		m.log.Debug("Sweep canceled", "sweep_id", sweepID)
		return nil
	}

	t, changed := m.applySweep(results)

	healthy := 0
	for _, r := range results {
		if r.Healthy() {
			healthy++
		}
	}
	m.log.Debug("Sweep completed",
		"sweep_id", sweepID,
		"healthy", healthy,
		"pool_size", len(results),
		"duration", time.Since(start),
	)

	m.emitSweep(results)
	if changed {
		m.log.Warn("Sweep changed current endpoint",
			"sweep_id", sweepID,
			"from", t.FromURL,
			"to", t.ToURL,
			"reason", t.Reason,
			"state", t.State,
		)
		m.emitTransition(t)
	}
	return results
}

func (m *Manager) applySweep(results []domain.HealthResult) (Transition, bool) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return Transition{}, false
	}

	m.lastSweepAt = time.Now()
	firstHealthy := -1
	for i, r := range results {
		m.slots[i].last = r
		m.slots[i].checked = true
		if firstHealthy < 0 && r.Healthy() {
			firstHealthy = i
		}
	}

	from := m.current
	var (
		t       Transition
		changed bool
		old     = m.handle
	)

	switch {
	case firstHealthy < 0:
		m.walkStart = -1
		if m.state != StateExhausted {
			m.state = StateExhausted
			t, changed = m.transitionLocked(from, ReasonExhausted), true
		}
		old = nil

	case m.state == StateExhausted || firstHealthy < m.current:
		m.state = StateActive
		m.walkStart = -1
		old = m.switchLocked(firstHealthy)
		t, changed = m.transitionLocked(from, ReasonRestore), true

	case !results[m.current].Healthy():
		next := m.current
		for k := 1; k < len(results); k++ {
			j := (m.current + k) % len(results)
			if results[j].Healthy() {
				next = j
				break
			}
		}
		m.walkStart = -1
		old = m.switchLocked(next)
		t, changed = m.transitionLocked(from, ReasonUnhealthy), true

	default:
		m.walkStart = -1
		old = nil
	}
	m.mu.Unlock()

	closeHandle(old, m.log)
	return t, changed
}
