package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// SolanaHandle is a solana-go backed handle.
type SolanaHandle struct {
	chain  domain.ChainAlias
	url    string
	client *rpc.Client
}

// NewSolanaHandle creates a handle for url.
func NewSolanaHandle(chain domain.ChainAlias, url string) *SolanaHandle {
	return &SolanaHandle{
		chain:  chain,
		url:    url,
		client: rpc.New(url),
	}
}

// Call issues a raw JSON-RPC call.
func (h *SolanaHandle) Call(ctx context.Context, result any, method string, params ...any) error {
	if result == nil {
		var discard any
		result = &discard
	}
	if params == nil {
		params = []any{}
	}

	return translateSolanaError(h.client.RPCCallForInto(ctx, result, method, params))
}

// translateSolanaError maps solana-go errors onto RPCError and
// HTTPStatusError.
func translateSolanaError(err error) error {
	if err == nil {
		return nil
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		statusErr := &HTTPStatusError{StatusCode: httpErr.Code, Body: truncate(httpErr.Error(), 256)}
		if statusErr.Throttled() {
			return fmt.Errorf("%w: %w", ErrThrottled, statusErr)
		}
		return statusErr
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &RPCError{Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return err
}

// Client exposes the typed client.
func (h *SolanaHandle) Client() *rpc.Client {
	return h.client
}

func (h *SolanaHandle) URL() string              { return h.url }
func (h *SolanaHandle) Chain() domain.ChainAlias { return h.chain }
func (h *SolanaHandle) Backend() Backend         { return BackendNative }

// Close releases the client's connections.
func (h *SolanaHandle) Close() error {
	return h.client.Close()
}
