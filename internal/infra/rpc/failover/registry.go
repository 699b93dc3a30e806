package failover

import (
	"sort"
	"sync"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// Registry holds the managers of a process, one per chain.
type Registry struct {
	mu       sync.RWMutex
	managers map[domain.ChainAlias]*Manager
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{managers: make(map[domain.ChainAlias]*Manager)}
}

// Add registers m, replacing any manager for the same chain.
func (r *Registry) Add(m *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[m.Chain()] = m
}

// Get returns the manager for chain.
func (r *Registry) Get(chain domain.ChainAlias) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[chain]
	return m, ok
}

// CurrentURL returns the current URL of chain's manager, if one exists.
func (r *Registry) CurrentURL(chain domain.ChainAlias) (string, bool) {
	m, ok := r.Get(chain)
	if !ok {
		return "", false
	}
	return m.CurrentRPCURL(), true
}

// All returns the managers sorted by chain.
func (r *Registry) All() []*Manager {
	r.mu.RLock()
	out := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		out = append(out, m)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Chain() < out[j].Chain() })
	return out
}

// Statuses returns a status snapshot of every manager.
func (r *Registry) Statuses() []Status {
	all := r.All()
	out := make([]Status, len(all))
	for i, m := range all {
		out[i] = m.Status()
	}
	return out
}

// StartHealthChecks starts the sweep loop of every manager.
func (r *Registry) StartHealthChecks(interval time.Duration) {
	for _, m := range r.All() {
		m.StartHealthChecks(interval)
	}
}

// Shutdown shuts every manager down.
func (r *Registry) Shutdown() {
	for _, m := range r.All() {
		m.Shutdown()
	}
}
