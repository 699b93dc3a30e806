// Package health provides multi-chain RPC health reporting and its HTTP
// surface.
package health

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// DefaultChains are checked when a request names no chains.
var DefaultChains = []string{
	string(domain.ChainEVM),
	string(domain.ChainSolana),
	string(domain.ChainWorldchainSepolia),
}

// ErrInvalidChainList is returned for an empty or malformed chain list.
var ErrInvalidChainList = errors.New("invalid chain list")

var chainToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ChainDetail is the per-chain entry of a report.
type ChainDetail struct {
	Status domain.HealthStatus `json:"status"`
	RPCURL string              `json:"rpcUrl"`
	Error  string              `json:"error,omitempty"`
}

// MarshalJSON always writes rpcUrl, as null when no endpoint was resolved.
func (d ChainDetail) MarshalJSON() ([]byte, error) {
	var url *string
	if d.RPCURL != "" {
		url = &d.RPCURL
	}
	return json.Marshal(struct {
		Status domain.HealthStatus `json:"status"`
		RPCURL *string             `json:"rpcUrl"`
		Error  string              `json:"error,omitempty"`
	}{d.Status, url, d.Error})
}

// Report is the result of a multi-chain check. Keys are normalized aliases.
type Report struct {
	OK      bool                           `json:"ok"`
	Health  map[string]domain.HealthStatus `json:"health"`
	Details map[string]ChainDetail         `json:"details"`
}

// ParseChains splits a comma separated chain list. An empty string yields
// DefaultChains; a list without valid tokens, or with tokens outside
// [A-Za-z0-9_-], is ErrInvalidChainList.
func ParseChains(raw string) ([]string, error) {
	if raw == "" {
		return append([]string(nil), DefaultChains...), nil
	}

	var out []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !chainToken.MatchString(tok) {
			return nil, ErrInvalidChainList
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return nil, ErrInvalidChainList
	}
	return out, nil
}
