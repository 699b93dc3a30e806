// Package resolver turns a chain alias into an ordered list of RPC endpoint
// candidates read from environment-style configuration.
//
// Sources are concatenated in priority order:
//
//	<STEM>_RPC_URL        single primary endpoint
//	<STEM>_RPC_URLS       comma or whitespace separated list
//	family fallbacks      EVM_RPC_URL(S) for EVM chains, legacy named keys
//	derived               templated endpoint built from an API key
//
// Strings that are not http(s) URLs are dropped silently.
package resolver

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

const (
	genericEVMPrimary = "EVM_RPC_URL"
	genericEVMList    = "EVM_RPC_URLS"
)

var urlPattern = regexp.MustCompile(`^https?://\S+$`)

// Resolver resolves endpoint candidates for chain aliases.
type Resolver struct {
	env Env
	log *slog.Logger
}

// New creates a resolver reading from env. A nil env reads the process
// environment.
func New(env Env, log *slog.Logger) *Resolver {
	if env == nil {
		env = OSEnv{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{env: env, log: log.With("component", "resolver")}
}

// Candidates returns the ordered, de-duplicated endpoint candidates for alias.
// An empty result means the chain is unconfigured.
func (r *Resolver) Candidates(alias domain.ChainAlias) []domain.EndpointCandidate {
	var out []domain.EndpointCandidate
	seen := make(map[string]struct{})

	add := func(raw string, source domain.EndpointSource) {
		u := strings.TrimSpace(raw)
		if u == "" {
			return
		}
		if !IsValidURL(u) {
			r.log.Debug("Dropping malformed RPC URL", "chain", alias, "source", source)
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, domain.EndpointCandidate{URL: u, Source: source})
	}
	addList := func(raw string, source domain.EndpointSource) {
		for _, u := range SplitList(raw) {
			add(u, source)
		}
	}

	stem := alias.EnvStem()
	add(r.get(stem+"_RPC_URL"), domain.SourcePrimary)
	addList(r.get(stem+"_RPC_URLS"), domain.SourceList)

	info, known := domain.Lookup(alias)
	if known {
		if info.Family == domain.FamilyEVM {
			add(r.get(genericEVMPrimary), domain.SourceLegacy)
			addList(r.get(genericEVMList), domain.SourceLegacy)
		}
		for _, key := range info.LegacyKeys {
			add(r.get(key), domain.SourceLegacy)
		}
		if info.DerivedTemplate != "" && info.DerivedKeyEnv != "" {
			if key := strings.TrimSpace(r.get(info.DerivedKeyEnv)); key != "" {
				add(fmt.Sprintf(info.DerivedTemplate, key), domain.SourceDerived)
			}
		}
	}

	return out
}

// ResolveRPCURL returns the first valid URL from the resolved candidates
// followed by the caller supplied fallbacks.
func (r *Resolver) ResolveRPCURL(alias domain.ChainAlias, fallbacks ...string) (string, bool) {
	if c := r.Candidates(alias); len(c) > 0 {
		return c[0].URL, true
	}
	for _, f := range fallbacks {
		f = strings.TrimSpace(f)
		if IsValidURL(f) {
			return f, true
		}
	}
	return "", false
}

// WithFallbacks appends caller supplied URLs to candidates, keeping order and
// dropping duplicates and malformed entries.
func WithFallbacks(candidates []domain.EndpointCandidate, fallbacks ...string) []domain.EndpointCandidate {
	out := make([]domain.EndpointCandidate, 0, len(candidates)+len(fallbacks))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	for _, f := range fallbacks {
		f = strings.TrimSpace(f)
		if !IsValidURL(f) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, domain.EndpointCandidate{URL: f, Source: domain.SourceFallback})
	}
	return out
}

// IsValidURL reports whether s looks like an http(s) endpoint.
func IsValidURL(s string) bool {
	return urlPattern.MatchString(s)
}

// SplitList splits a comma and/or whitespace separated list.
func SplitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ';'
	})
}

func (r *Resolver) get(key string) string {
	v, _ := r.env.Lookup(key)
	return v
}
