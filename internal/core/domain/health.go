package domain

import "time"

// HealthStatus is the binary liveness classification of an endpoint.
type HealthStatus string

const (
	HealthHealthy     HealthStatus = "healthy"
	HealthUnavailable HealthStatus = "unavailable"
)

// ReasonNotConfigured is reported for chains without any usable endpoint.
const ReasonNotConfigured = "RPC URL not configured"

// HealthResult is an immutable snapshot of one probe.
type HealthResult struct {
	Chain     ChainAlias    `json:"chain"`
	Status    HealthStatus  `json:"status"`
	URL       string        `json:"rpcUrl,omitempty"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// Healthy reports whether the probe succeeded.
func (r HealthResult) Healthy() bool {
	return r.Status == HealthHealthy
}

// Healthy builds a successful result.
func Healthy(chain ChainAlias, url string, latency time.Duration) HealthResult {
	return HealthResult{
		Chain:     chain,
		Status:    HealthHealthy,
		URL:       url,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
}

// Unavailable builds a failed result carrying a human-readable reason.
func Unavailable(chain ChainAlias, url, reason string, latency time.Duration) HealthResult {
	return HealthResult{
		Chain:     chain,
		Status:    HealthUnavailable,
		URL:       url,
		Error:     reason,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
}
