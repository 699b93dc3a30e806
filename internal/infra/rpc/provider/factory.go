package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// ParseBackend parses a configured backend name. Empty and "auto" mean
// native: the go-ethereum and solana-go clients are linked into the binary,
// and Factory.New drops to JSON-RPC for any endpoint whose native client
// cannot be built.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", string(BackendNative):
		return BackendNative, nil
	case string(BackendJSONRPC):
		return BackendJSONRPC, nil
	default:
		return "", fmt.Errorf("unknown rpc backend %q", s)
	}
}

// Factory builds handles for one backend.
type Factory struct {
	backend    Backend
	httpClient *http.Client
	log        *slog.Logger
}

// NewFactory creates a factory. The backend is fixed for its lifetime.
func NewFactory(backend Backend, log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	if backend == "" {
		backend = BackendJSONRPC
	}
	return &Factory{
		backend:    backend,
		httpClient: NewHTTPClient(),
		log:        log,
	}
}

// Backend returns the backend handles are built with.
func (f *Factory) Backend() Backend {
	return f.backend
}

// New builds a handle for url.
func (f *Factory) New(ctx context.Context, chain domain.ChainAlias, url string) (Handle, error) {
	if f.backend == BackendJSONRPC {
		return NewHTTPProvider(chain, url, f.httpClient), nil
	}

	if chain.Family() == domain.FamilySolana {
		return NewSolanaHandle(chain, url), nil
	}

	h, err := NewEVMHandle(ctx, chain, url, f.httpClient)
	if err != nil {
		f.log.Warn("Native client unavailable, using JSON-RPC",
			"chain", chain,
			"url", url,
			"error", err,
		)
		return NewHTTPProvider(chain, url, f.httpClient), nil
	}
	return h, nil
}
