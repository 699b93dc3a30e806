// Package probe performs protocol-correct liveness checks against RPC
// endpoints.
//
// Solana endpoints are asked getHealth and must answer exactly "ok". EVM
// endpoints, and chains of unknown family, are asked eth_chainId and must
// answer with a non-empty result. Anything else is unavailable.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
	"github.com/vietddude/rpcwatch/internal/metrics"
)

// DefaultTimeout bounds a probe when the caller passes zero.
const DefaultTimeout = 5 * time.Second

const (
	methodSolanaHealth = "getHealth"
	methodEVMChainID   = "eth_chainId"
)

// Prober issues health probes.
type Prober struct {
	client   *http.Client
	resolver *resolver.Resolver
	log      *slog.Logger
}

// New creates a prober. The resolver is only needed by ProbeChain.
func New(r *resolver.Resolver, log *slog.Logger) *Prober {
	if log == nil {
		log = slog.Default()
	}
	return &Prober{
		client:   provider.NewHTTPClient(),
		resolver: r,
		log:      log.With("component", "probe"),
	}
}

// Probe checks url for chain. It never returns a partial status; the in-flight
// request is aborted when timeout elapses.
func (p *Prober) Probe(ctx context.Context, chain domain.ChainAlias, url string, timeout time.Duration) domain.HealthResult {
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.Unavailable(chain, "", domain.ReasonNotConfigured, 0)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	reason := p.check(ctx, chain, url, timeout)
	latency := time.Since(start)

	var result domain.HealthResult
	if reason == "" {
		result = domain.Healthy(chain, url, latency)
	} else {
		result = domain.Unavailable(chain, url, reason, latency)
		p.log.Debug("Probe failed", "chain", chain, "url", url, "reason", reason)
	}

	metrics.ProbesTotal.WithLabelValues(string(chain), string(result.Status)).Inc()
	metrics.ProbeLatency.WithLabelValues(string(chain)).Observe(latency.Seconds())

	return result
}

// ProbeChain resolves the first configured URL for chain and probes it.
func (p *Prober) ProbeChain(ctx context.Context, chain domain.ChainAlias, timeout time.Duration) domain.HealthResult {
	if p.resolver == nil {
		return domain.Unavailable(chain, "", domain.ReasonNotConfigured, 0)
	}
	url, ok := p.resolver.ResolveRPCURL(chain)
	if !ok {
		return domain.Unavailable(chain, "", domain.ReasonNotConfigured, 0)
	}
	return p.Probe(ctx, chain, url, timeout)
}

// check returns an empty string for a healthy endpoint, else the reason.
func (p *Prober) check(ctx context.Context, chain domain.ChainAlias, url string, timeout time.Duration) string {
	method := methodEVMChainID
	if chain.Family() == domain.FamilySolana {
		method = methodSolanaHealth
	}

	resp, err := provider.Post(ctx, p.client, url, method, nil)
	if err != nil {
		return describe(err, timeout)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode)
	}
	if resp.Error != nil {
		return resp.Error.Error()
	}
	if !resp.HasResult() {
		return "missing result"
	}

	if method == methodSolanaHealth {
		var status string
		if err := json.Unmarshal(resp.Result, &status); err != nil || status != "ok" {
			return fmt.Sprintf("unexpected getHealth result %s", strings.TrimSpace(string(resp.Result)))
		}
		return ""
	}

	var chainID string
	if err := json.Unmarshal(resp.Result, &chainID); err == nil && strings.TrimSpace(chainID) == "" {
		return "empty eth_chainId result"
	}
	return ""
}

// describe turns a transport failure into a reason string.
func describe(err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("timeout after %s", timeout)
	case errors.Is(err, context.Canceled):
		return "probe canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Sprintf("timeout after %s", timeout)
		}
		return fmt.Sprintf("network error: %v", err)
	}
	return err.Error()
}
