package provider

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Status represents the throttle state of an endpoint.
type Status int

const (
	StatusHealthy   Status = iota // Endpoint is working normally
	StatusDegraded                // Endpoint is slow but working
	StatusThrottled               // Endpoint is rate limiting
	StatusBlocked                 // Endpoint has blocked this client
)

func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "healthy"
	}
}

// MonitorStats holds monitoring statistics for one endpoint.
type MonitorStats struct {
	Status         Status
	AverageLatency time.Duration
	Throttled429   int
	Blocked403     int
	Requests       int
}

// Monitor tracks latency and rate limiting for one endpoint.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count     int
	status403Count     int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration
	requests           int

	slowResponseThreshold time.Duration
	throttleAfter429      int
}

// NewMonitor creates a monitor with default thresholds.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"daily request count exceeded",
			"project rate limit",
			"monthly quota exceeded",
			"capacity exceeded",
		},
		slowResponseThreshold: 3 * time.Second,
		throttleAfter429:      5,
	}
}

// RecordRequest records a successful request with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordThrottle records a 429 or 403 response. retryAfter is the raw
// Retry-After header value, in seconds.
func (m *Monitor) RecordThrottle(statusCode int, retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.lastThrottleTime = time.Now()

	switch statusCode {
	case http.StatusTooManyRequests:
		m.status429Count++
		m.retryAfterDuration = time.Minute
		if d, err := time.ParseDuration(strings.TrimSpace(retryAfter) + "s"); err == nil && d > 0 {
			m.retryAfterDuration = d
		}
	case http.StatusForbidden:
		m.status403Count++
		m.retryAfterDuration = 10 * time.Minute
	}
}

// DetectThrottlePattern checks if a message contains a known throttle phrase.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lower := strings.ToLower(message)
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Status returns the current state of the endpoint.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() Status {
	inWindow := time.Since(m.lastThrottleTime) < m.retryAfterDuration

	if m.status403Count > 0 && inWindow {
		return StatusBlocked
	}
	if m.status429Count > m.throttleAfter429 && inWindow {
		return StatusThrottled
	}
	if len(m.recentLatencies) > 10 && m.averageLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// RetryAfter returns the remaining time before requests are allowed again.
func (m *Monitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.retryAfterDuration > 0 {
		if remaining := m.retryAfterDuration - time.Since(m.lastThrottleTime); remaining > 0 {
			return remaining
		}
	}
	return 0
}

// AverageLatency returns the average latency of recent requests.
func (m *Monitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLocked()
}

func (m *Monitor) averageLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns a snapshot of the monitor.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MonitorStats{
		Status:         m.statusLocked(),
		AverageLatency: m.averageLocked(),
		Throttled429:   m.status429Count,
		Blocked403:     m.status403Count,
		Requests:       m.requests,
	}
}
