package failover

import (
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
)

// Status is a point-in-time view of a manager.
type Status struct {
	Chain             domain.ChainAlias `json:"chain"`
	CurrentIndex      int               `json:"currentIndex"`
	CurrentURL        string            `json:"currentUrl"`
	PoolSize          int               `json:"poolSize"`
	State             State             `json:"state"`
	LastSweepAt       time.Time         `json:"lastSweepAt"`
	ConsecutiveErrors int               `json:"consecutiveErrors"`
	Backend           provider.Backend  `json:"backend"`
	Endpoints         []EndpointStatus  `json:"endpoints"`
	Handle            *provider.Report  `json:"handle,omitempty"`
}

// EndpointStatus is the last known health of one pool slot. Healthy is nil
// until the slot has been probed.
type EndpointStatus struct {
	URL           string                `json:"url"`
	Source        domain.EndpointSource `json:"source"`
	Current       bool                  `json:"current"`
	Healthy       *bool                 `json:"healthy,omitempty"`
	LastError     string                `json:"lastError,omitempty"`
	LastCheckedAt time.Time             `json:"lastCheckedAt,omitempty"`
	Latency       time.Duration         `json:"latency,omitempty"`
}

// CurrentLatency is the latest latency seen on the current endpoint: the
// handle's traffic record when it has one, the last probe otherwise. Zero
// means unknown.
func (s Status) CurrentLatency() time.Duration {
	if s.Handle != nil && s.Handle.Latency > 0 {
		return s.Handle.Latency
	}
	if s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Endpoints) {
		return s.Endpoints[s.CurrentIndex].Latency
	}
	return 0
}
