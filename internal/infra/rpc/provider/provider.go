// Package provider implements RPC provider handles.
//
// This package contains:
//   - Handle: a client bound to one endpoint URL of one chain
//   - EVMHandle / SolanaHandle: library-backed clients (native backend)
//   - HTTPProvider: plain JSON-RPC over HTTP (jsonrpc backend)
//   - Monitor: throttle and latency tracking for HTTPProvider
//   - Factory: picks the backend once and builds handles
package provider

import (
	"context"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// Backend tags which client implementation backs a handle.
type Backend string

const (
	// BackendNative uses go-ethereum for EVM chains and solana-go for Solana.
	BackendNative Backend = "native"
	// BackendJSONRPC uses the built-in HTTP JSON-RPC client for every chain.
	BackendJSONRPC Backend = "jsonrpc"
)

// Handle is a client bound to one endpoint URL. Handles are immutable; a pool
// replaces a handle by constructing a new one.
type Handle interface {
	// URL returns the endpoint the handle talks to.
	URL() string

	// Chain returns the chain the handle was built for.
	Chain() domain.ChainAlias

	// Backend returns the implementation tag.
	Backend() Backend

	// Call issues a JSON-RPC request and decodes the result into result
	// (which may be nil to discard it).
	Call(ctx context.Context, result any, method string, params ...any) error

	// Close releases idle connections.
	Close() error
}

// Reporter is implemented by handles that keep their own traffic record.
type Reporter interface {
	Report() Report
}

// Report is the traffic record of one handle.
type Report struct {
	Available    bool          `json:"available"`
	Latency      time.Duration `json:"latency"`
	ErrorRate    float64       `json:"errorRate"`
	Throttle     string        `json:"throttle"`
	Throttled429 int           `json:"throttled429"`
	Blocked403   int           `json:"blocked403"`
	Requests     int           `json:"requests"`
}
