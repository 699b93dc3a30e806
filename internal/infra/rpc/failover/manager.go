// Package failover keeps one chain pointed at a working RPC endpoint.
//
// A Manager owns an ordered pool of endpoint candidates and a current index.
// Consumers take the current handle with Provider and feed call failures back
// with ReportError; after ErrorThreshold consecutive errors the manager
// advances to the next candidate. A periodic sweep probes every candidate,
// restores the highest-priority healthy one and detects exhaustion.
package failover

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
	"github.com/vietddude/rpcwatch/internal/metrics"
)

// State is the pool state of a manager.
type State string

const (
	StateActive    State = "active"
	StateExhausted State = "exhausted"
)

const (
	DefaultErrorThreshold = 3
	DefaultSweepInterval  = 30 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
	DefaultEventBuffer    = 256
)

// Config tunes failover behavior. Zero values take the defaults.
type Config struct {
	ErrorThreshold int
	SweepInterval  time.Duration
	ProbeTimeout   time.Duration

	// EventBuffer bounds the events waiting for recorders; further events
	// are dropped.
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = DefaultErrorThreshold
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	return c
}

// HandleFactory builds provider handles. *provider.Factory implements it.
type HandleFactory interface {
	New(ctx context.Context, chain domain.ChainAlias, url string) (provider.Handle, error)
}

// Prober checks one endpoint. *probe.Prober implements it.
type Prober interface {
	Probe(ctx context.Context, chain domain.ChainAlias, url string, timeout time.Duration) domain.HealthResult
}

type slot struct {
	candidate domain.EndpointCandidate
	last      domain.HealthResult
	checked   bool
}

// Manager is the failover state of one chain.
type Manager struct {
	chain     domain.ChainAlias
	cfg       Config
	factory   HandleFactory
	prober    Prober
	recorders []Recorder
	log       *slog.Logger

	mu          sync.RWMutex
	slots       []slot
	current     int
	handle      provider.Handle
	consecutive int
	walkStart   int // index the current error walk started from, -1 when idle
	state       State
	lastSweepAt time.Time
	closed      bool

	// lifecycle of the sweep loop
	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool

	// recorder delivery, nil when there are no recorders
	events  chan event
	recDone chan struct{}
	recWG   sync.WaitGroup
}

// New creates a manager for chain over candidates, starting optimistically at
// index 0. It returns ErrNotConfigured when candidates is empty.
func New(
	chain domain.ChainAlias,
	candidates []domain.EndpointCandidate,
	factory HandleFactory,
	prober Prober,
	cfg Config,
	log *slog.Logger,
	recorders ...Recorder,
) (*Manager, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", chain, ErrNotConfigured)
	}
	if log == nil {
		log = slog.Default()
	}

	m := &Manager{
		chain:     chain,
		cfg:       cfg.withDefaults(),
		factory:   factory,
		prober:    prober,
		recorders: recorders,
		log:       log.With("component", "failover", "chain", chain),
		slots:     make([]slot, len(candidates)),
		walkStart: -1,
		state:     StateActive,
	}
	for i, c := range candidates {
		m.slots[i] = slot{candidate: c}
	}
	m.handle = m.newHandle(candidates[0].URL)
	if len(recorders) > 0 {
		m.events = make(chan event, m.cfg.EventBuffer)
		m.recDone = make(chan struct{})
		m.recWG.Add(1)
		go m.recordLoop()
	}

	metrics.PoolSize.WithLabelValues(string(chain)).Set(float64(len(candidates)))
	metrics.CurrentIndex.WithLabelValues(string(chain)).Set(0)
	metrics.Exhausted.WithLabelValues(string(chain)).Set(0)

	m.log.Info("Failover manager ready",
		"pool_size", len(candidates),
		"url", candidates[0].URL,
		"backend", m.handle.Backend(),
	)
	return m, nil
}

// Chain returns the chain this manager serves.
func (m *Manager) Chain() domain.ChainAlias {
	return m.chain
}

// Provider returns the current handle. While exhausted it still returns the
// last selected handle.
func (m *Manager) Provider() provider.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

// CurrentRPCURL returns the URL of the current endpoint.
func (m *Manager) CurrentRPCURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[m.current].candidate.URL
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// ReportError counts err against the current endpoint. Nil errors are ignored.
func (m *Manager) ReportError(err error) {
	m.reportError(nil, err)
}

// ReportErrorFor counts err against h, ignoring the report if h is no longer
// the current handle.
func (m *Manager) ReportErrorFor(h provider.Handle, err error) {
	if h == nil {
		return
	}
	m.reportError(h, err)
}

func (m *Manager) reportError(h provider.Handle, err error) {
	if err == nil {
		return
	}
	kind := Classify(err)
	metrics.ReportedErrorsTotal.WithLabelValues(string(m.chain), string(kind)).Inc()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if h != nil && h != m.handle {
		m.mu.Unlock()
		m.log.Debug("Ignoring error for stale handle", "url", h.URL(), "kind", kind)
		return
	}

	m.consecutive++
	if m.consecutive < m.cfg.ErrorThreshold {
		m.mu.Unlock()
		m.log.Debug("RPC error reported", "kind", kind, "consecutive", m.consecutive, "error", err)
		return
	}

	from := m.current
	if m.walkStart < 0 {
		m.walkStart = from
	}
	next := (from + 1) % len(m.slots)

	reason := ReasonErrorThreshold
	if next == m.walkStart {
		reason = ReasonExhausted
		m.state = StateExhausted
		m.walkStart = -1
	}
	old := m.switchLocked(next)
	t := m.transitionLocked(from, reason)
	m.mu.Unlock()

	closeHandle(old, m.log)
	m.log.Warn("Failing over after consecutive errors",
		"from", t.FromURL,
		"to", t.ToURL,
		"kind", kind,
		"state", t.State,
		"error", err,
	)
	m.emitTransition(t)
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		Chain:             m.chain,
		CurrentIndex:      m.current,
		CurrentURL:        m.slots[m.current].candidate.URL,
		PoolSize:          len(m.slots),
		State:             m.state,
		LastSweepAt:       m.lastSweepAt,
		ConsecutiveErrors: m.consecutive,
		Backend:           m.handle.Backend(),
		Endpoints:         make([]EndpointStatus, len(m.slots)),
	}
	for i, s := range m.slots {
		ep := EndpointStatus{
			URL:     s.candidate.URL,
			Source:  s.candidate.Source,
			Current: i == m.current,
		}
		if s.checked {
			healthy := s.last.Healthy()
			ep.Healthy = &healthy
			ep.LastError = s.last.Error
			ep.LastCheckedAt = s.last.CheckedAt
			ep.Latency = s.last.Latency
		}
		st.Endpoints[i] = ep
	}
	if r, ok := m.handle.(provider.Reporter); ok {
		report := r.Report()
		st.Handle = &report
	}
	return st
}

// StartHealthChecks starts the periodic sweep: one sweep immediately, then one
// every interval (SweepInterval when zero). Calling it again, or after
// Shutdown, does nothing.
func (m *Manager) StartHealthChecks(interval time.Duration) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.stopped || m.cancel != nil {
		return
	}
	if interval <= 0 {
		interval = m.cfg.SweepInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.sweepLoop(ctx, interval)

	m.log.Info("Health checks started", "interval", interval)
}

// StopHealthChecks stops the sweep loop and waits for it to exit.
func (m *Manager) StopHealthChecks() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.cancel = nil
}

// Shutdown stops health checks, closes the current handle and delivers the
// queued recorder events. It is safe to call more than once and before
// StartHealthChecks.
func (m *Manager) Shutdown() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.stopped {
		return
	}
	m.stopped = true
	m.stopLocked()

	m.mu.Lock()
	m.closed = true
	h := m.handle
	m.mu.Unlock()

	closeHandle(h, m.log)
	if m.recDone != nil {
		close(m.recDone)
		m.recWG.Wait()
	}
	m.log.Info("Failover manager stopped")
}

func (m *Manager) sweepLoop(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	m.Sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// switchLocked makes slot i current and returns the handle it replaced, or
// nil when i was already current.
func (m *Manager) switchLocked(i int) provider.Handle {
	m.consecutive = 0
	if i == m.current {
		return nil
	}

	old := m.handle
	m.current = i
	m.handle = m.newHandle(m.slots[i].candidate.URL)

	metrics.CurrentIndex.WithLabelValues(string(m.chain)).Set(float64(i))
	return old
}

func (m *Manager) transitionLocked(from int, reason Reason) Transition {
	exhausted := 0.0
	if m.state == StateExhausted {
		exhausted = 1
	}
	metrics.Exhausted.WithLabelValues(string(m.chain)).Set(exhausted)
	metrics.FailoversTotal.WithLabelValues(string(m.chain), string(reason)).Inc()

	return Transition{
		ID:      uuid.NewString(),
		Chain:   m.chain,
		From:    from,
		To:      m.current,
		FromURL: m.slots[from].candidate.URL,
		ToURL:   m.slots[m.current].candidate.URL,
		Reason:  reason,
		State:   m.state,
		At:      time.Now(),
	}
}

// newHandle builds a handle for url, falling back to the plain JSON-RPC
// handle so the manager never holds nil.
func (m *Manager) newHandle(url string) provider.Handle {
	if m.factory != nil {
		h, err := m.factory.New(context.Background(), m.chain, url)
		if err == nil && h != nil {
			return h
		}
		m.log.Warn("Handle construction failed, using JSON-RPC handle", "url", url, "error", err)
	}
	return provider.NewHTTPProvider(m.chain, url, nil)
}

func closeHandle(h provider.Handle, log *slog.Logger) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		log.Warn("Failed to close provider handle", "url", h.URL(), "error", err)
	}
}
