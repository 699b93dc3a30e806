package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// EVMHandle is a go-ethereum backed handle.
type EVMHandle struct {
	chain  domain.ChainAlias
	url    string
	rpc    *rpc.Client
	client *ethclient.Client
}

// NewEVMHandle dials url. For HTTP endpoints dialing does not touch the
// network.
func NewEVMHandle(ctx context.Context, chain domain.ChainAlias, url string, httpClient *http.Client) (*EVMHandle, error) {
	rpcClient, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}

	return &EVMHandle{
		chain:  chain,
		url:    url,
		rpc:    rpcClient,
		client: ethclient.NewClient(rpcClient),
	}, nil
}

// Call issues a raw JSON-RPC call.
func (h *EVMHandle) Call(ctx context.Context, result any, method string, params ...any) error {
	if result == nil {
		var discard any
		result = &discard
	}
	return translateEVMError(h.rpc.CallContext(ctx, result, method, params...))
}

// Eth exposes the typed client.
func (h *EVMHandle) Eth() *ethclient.Client {
	return h.client
}

func (h *EVMHandle) URL() string              { return h.url }
func (h *EVMHandle) Chain() domain.ChainAlias { return h.chain }
func (h *EVMHandle) Backend() Backend         { return BackendNative }

// Close shuts down the underlying client.
func (h *EVMHandle) Close() error {
	h.client.Close()
	return nil
}

// translateEVMError maps go-ethereum errors onto RPCError and HTTPStatusError.
func translateEVMError(err error) error {
	if err == nil {
		return nil
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		statusErr := &HTTPStatusError{StatusCode: httpErr.StatusCode, Body: truncate(string(httpErr.Body), 256)}
		if statusErr.Throttled() {
			return fmt.Errorf("%w: %w", ErrThrottled, statusErr)
		}
		return statusErr
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}

	return err
}
