package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// HealthStats is the running success/failure record of an HTTPProvider.
type HealthStats struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

// HTTPProvider implements Handle with plain JSON-RPC over HTTP.
type HTTPProvider struct {
	chain      domain.ChainAlias
	endpoint   string
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStats
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *Monitor
}

// NewHTTPProvider creates a JSON-RPC handle. A nil client gets a fresh one
// from NewHTTPClient.
func NewHTTPProvider(chain domain.ChainAlias, endpoint string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = NewHTTPClient()
	}
	return &HTTPProvider{
		chain:      chain,
		endpoint:   endpoint,
		httpClient: client,
		health: HealthStats{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewMonitor(),
	}
}

// Call makes a single JSON-RPC call.
func (p *HTTPProvider) Call(ctx context.Context, result any, method string, params ...any) error {
	if status := p.Monitor.Status(); status == StatusThrottled || status == StatusBlocked {
		return fmt.Errorf("%w: %s, retry after %v", ErrThrottled, status, p.Monitor.RetryAfter())
	}

	start := time.Now()
	resp, err := Post(ctx, p.httpClient, p.endpoint, method, params)
	if err != nil {
		p.recordFailure()
		return err
	}
	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		p.recordFailure()
		statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 256)}

		if statusErr.Throttled() {
			p.Monitor.RecordThrottle(resp.StatusCode, resp.Header.Get("Retry-After"))
			return fmt.Errorf("%w: %w", ErrThrottled, statusErr)
		}
		if p.Monitor.DetectThrottlePattern(string(resp.Body)) {
			return fmt.Errorf("%w: %w", ErrThrottled, statusErr)
		}
		return statusErr
	}

	if resp.Error != nil {
		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(resp.Error.Message) {
			return fmt.Errorf("%w: %w", ErrThrottled, resp.Error)
		}
		return resp.Error
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// URL returns the endpoint.
func (p *HTTPProvider) URL() string {
	return p.endpoint
}

// Chain returns the chain alias.
func (p *HTTPProvider) Chain() domain.ChainAlias {
	return p.chain
}

// Backend returns BackendJSONRPC.
func (p *HTTPProvider) Backend() Backend {
	return BackendJSONRPC
}

// Health returns the provider's running health record.
func (p *HTTPProvider) Health() HealthStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// Report combines the health record with the throttle monitor.
func (p *HTTPProvider) Report() Report {
	h := p.Health()
	m := p.Monitor.Stats()
	return Report{
		Available:    h.Available,
		Latency:      h.Latency,
		ErrorRate:    h.ErrorRate,
		Throttle:     m.Status.String(),
		Throttled429: m.Throttled429,
		Blocked403:   m.Blocked403,
		Requests:     m.Requests,
	}
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
