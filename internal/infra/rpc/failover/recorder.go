package failover

import (
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/metrics"
)

// Reason explains why the current endpoint changed.
type Reason string

const (
	ReasonErrorThreshold Reason = "error_threshold"
	ReasonUnhealthy      Reason = "unhealthy"
	ReasonRestore        Reason = "restore"
	ReasonExhausted      Reason = "exhausted"
)

// Transition describes a change of current endpoint or state.
type Transition struct {
	ID      string            `json:"id"`
	Chain   domain.ChainAlias `json:"chain"`
	From    int               `json:"from"`
	To      int               `json:"to"`
	FromURL string            `json:"fromUrl"`
	ToURL   string            `json:"toUrl"`
	Reason  Reason            `json:"reason"`
	State   State             `json:"state"`
	At      time.Time         `json:"at"`
}

// Recorder receives manager events. Calls happen in order on a per-manager
// goroutine, never on the caller reporting the error; implementations log
// their own failures.
type Recorder interface {
	OnTransition(t Transition)
	OnSweep(chain domain.ChainAlias, results []domain.HealthResult)
}

type event struct {
	transition *Transition
	results    []domain.HealthResult
}

func (m *Manager) emitTransition(t Transition) {
	m.enqueue(event{transition: &t}, "transition")
}

func (m *Manager) emitSweep(results []domain.HealthResult) {
	m.enqueue(event{results: results}, "sweep")
}

// enqueue hands e to the record loop without blocking. Events that do not
// fit the buffer are dropped.
func (m *Manager) enqueue(e event, kind string) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- e:
	default:
		metrics.DroppedEventsTotal.WithLabelValues(string(m.chain), kind).Inc()
		m.log.Warn("Recorder queue full, dropping event", "event", kind)
	}
}

// recordLoop delivers events in order until Shutdown, then drains what is
// left in the queue.
func (m *Manager) recordLoop() {
	defer m.recWG.Done()
	for {
		select {
		case e := <-m.events:
			m.deliver(e)
		case <-m.recDone:
			for {
				select {
				case e := <-m.events:
					m.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) deliver(e event) {
	for _, r := range m.recorders {
		if e.transition != nil {
			t := *e.transition
			m.safeRecord(func() { r.OnTransition(t) })
		} else {
			m.safeRecord(func() { r.OnSweep(m.chain, e.results) })
		}
	}
}

func (m *Manager) safeRecord(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Recorder panicked", "panic", r)
		}
	}()
	fn()
}
