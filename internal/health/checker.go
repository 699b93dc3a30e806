package health

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
)

// Prober checks one endpoint. *probe.Prober implements it.
type Prober interface {
	Probe(ctx context.Context, chain domain.ChainAlias, url string, timeout time.Duration) domain.HealthResult
}

// URLSource reports the URL a running failover manager currently uses.
// *failover.Registry implements it.
type URLSource interface {
	CurrentURL(chain domain.ChainAlias) (string, bool)
}

// Checker aggregates endpoint health across chains.
type Checker struct {
	prober    Prober
	resolver  *resolver.Resolver
	managers  URLSource
	fallbacks map[domain.ChainAlias][]string
	timeout   time.Duration
	log       *slog.Logger
}

// NewChecker creates a checker. managers may be nil; fallbacks are extra URLs
// tried after the resolver's candidates.
func NewChecker(
	prober Prober,
	r *resolver.Resolver,
	managers URLSource,
	fallbacks map[domain.ChainAlias][]string,
	timeout time.Duration,
	log *slog.Logger,
) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		prober:    prober,
		resolver:  r,
		managers:  managers,
		fallbacks: fallbacks,
		timeout:   timeout,
		log:       log.With("component", "health"),
	}
}

// Check probes chains concurrently. Inputs are normalized; duplicates after
// normalization are probed once. OK is true only when every chain is healthy.
func (c *Checker) Check(ctx context.Context, chains []string) Report {
	aliases := make([]domain.ChainAlias, 0, len(chains))
	seen := make(map[domain.ChainAlias]struct{}, len(chains))
	for _, raw := range chains {
		alias := domain.Normalize(raw)
		if alias == "" {
			continue
		}
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}
		aliases = append(aliases, alias)
	}

	results := make([]domain.HealthResult, len(aliases))
	var g errgroup.Group
	for i, alias := range aliases {
		g.Go(func() error {
			results[i] = c.prober.Probe(ctx, alias, c.urlFor(alias), c.timeout)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		OK:      len(results) > 0,
		Health:  make(map[string]domain.HealthStatus, len(results)),
		Details: make(map[string]ChainDetail, len(results)),
	}
	for _, res := range results {
		key := string(res.Chain)
		report.Health[key] = res.Status
		report.Details[key] = ChainDetail{
			Status: res.Status,
			RPCURL: res.URL,
			Error:  res.Error,
		}
		if !res.Healthy() {
			report.OK = false
		}
	}

	c.log.Debug("Health check completed", "chains", len(results), "ok", report.OK)
	return report
}

// urlFor prefers a running manager's current URL, then the resolver.
func (c *Checker) urlFor(alias domain.ChainAlias) string {
	if c.managers != nil {
		if url, ok := c.managers.CurrentURL(alias); ok {
			return url
		}
	}
	if c.resolver == nil {
		return ""
	}
	url, _ := c.resolver.ResolveRPCURL(alias, c.fallbacks[alias]...)
	return url
}
