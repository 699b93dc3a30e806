package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/vietddude/rpcwatch/internal/core/domain"
)

// rpcServer answers every JSON-RPC request through handle, echoing the id.
func rpcServer(t *testing.T, handle func(method string) (result any, rpcErr map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}

		result, rpcErr := handle(req.Method)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProvider_Call(t *testing.T) {
	srv := rpcServer(t, func(method string) (any, map[string]any) {
		if method != "eth_chainId" {
			t.Errorf("unexpected method %s", method)
		}
		return "0x4b6", nil
	})

	p := NewHTTPProvider(domain.ChainWorldchainSepolia, srv.URL, nil)
	defer p.Close()

	var chainID string
	if err := p.Call(context.Background(), &chainID, "eth_chainId"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chainID != "0x4b6" {
		t.Errorf("expected 0x4b6, got %s", chainID)
	}
	if p.Backend() != BackendJSONRPC {
		t.Errorf("expected jsonrpc backend, got %s", p.Backend())
	}
	if !p.Health().Available {
		t.Error("expected provider to be available")
	}

	var r Reporter = p
	report := r.Report()
	if report.Requests != 1 || report.Throttle != "healthy" || report.ErrorRate != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestHTTPProvider_RPCError(t *testing.T) {
	srv := rpcServer(t, func(string) (any, map[string]any) {
		return nil, map[string]any{"code": -32601, "message": "method not found"}
	})

	p := NewHTTPProvider(domain.ChainEVM, srv.URL, nil)
	err := p.Call(context.Background(), nil, "eth_nope")

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("expected code -32601, got %d", rpcErr.Code)
	}
}

func TestHTTPProvider_ThrottlePatternInRPCError(t *testing.T) {
	srv := rpcServer(t, func(string) (any, map[string]any) {
		return nil, map[string]any{"code": -32005, "message": "Too Many Requests"}
	})

	p := NewHTTPProvider(domain.ChainEVM, srv.URL, nil)
	err := p.Call(context.Background(), nil, "eth_chainId")
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
}

func TestHTTPProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		throttled bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"blocked", http.StatusForbidden, true},
		{"server error", http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer srv.Close()

			p := NewHTTPProvider(domain.ChainEVM, srv.URL, nil)
			err := p.Call(context.Background(), nil, "eth_chainId")

			var statusErr *HTTPStatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected HTTPStatusError, got %v", err)
			}
			if statusErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, statusErr.StatusCode)
			}
			if errors.Is(err, ErrThrottled) != tt.throttled {
				t.Errorf("throttled = %v, want %v", errors.Is(err, ErrThrottled), tt.throttled)
			}
		})
	}
}

func TestHTTPProvider_BlockedShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewHTTPProvider(domain.ChainEVM, srv.URL, nil)
	_ = p.Call(context.Background(), nil, "eth_chainId")
	err := p.Call(context.Background(), nil, "eth_chainId")

	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected blocked provider to skip the request, got %d calls", n)
	}
}

func TestFactory_NativeHandles(t *testing.T) {
	srv := rpcServer(t, func(method string) (any, map[string]any) {
		switch method {
		case "eth_chainId":
			return "0x1", nil
		case "getHealth":
			return "ok", nil
		}
		return nil, map[string]any{"code": -32601, "message": "method not found"}
	})

	f := NewFactory(BackendNative, nil)
	ctx := context.Background()

	evm, err := f.New(ctx, domain.ChainEthereum, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer evm.Close()
	if _, ok := evm.(*EVMHandle); !ok {
		t.Fatalf("expected EVMHandle, got %T", evm)
	}

	var chainID string
	if err := evm.Call(ctx, &chainID, "eth_chainId"); err != nil || chainID != "0x1" {
		t.Fatalf("eth_chainId = %q, %v", chainID, err)
	}

	err = evm.Call(ctx, nil, "eth_nope")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32601 {
		t.Fatalf("expected translated RPCError, got %v", err)
	}

	sol, err := f.New(ctx, domain.ChainSolana, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sol.Close()
	if sol.Backend() != BackendNative || sol.URL() != srv.URL {
		t.Fatalf("unexpected solana handle %T %s", sol, sol.URL())
	}

	var health string
	if err := sol.Call(ctx, &health, "getHealth"); err != nil || health != "ok" {
		t.Fatalf("getHealth = %q, %v", health, err)
	}
}

func TestFactory_JSONRPCBackend(t *testing.T) {
	f := NewFactory(BackendJSONRPC, nil)

	h, err := f.New(context.Background(), domain.ChainSolana, "https://sol.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := h.(*HTTPProvider); !ok {
		t.Fatalf("expected HTTPProvider, got %T", h)
	}
	if h.Chain() != domain.ChainSolana {
		t.Errorf("expected solana chain, got %s", h.Chain())
	}
}

func TestParseBackend(t *testing.T) {
	if b, err := ParseBackend("JSONRPC"); err != nil || b != BackendJSONRPC {
		t.Errorf("got %s, %v", b, err)
	}
	if b, err := ParseBackend("native"); err != nil || b != BackendNative {
		t.Errorf("got %s, %v", b, err)
	}
	for _, name := range []string{"", "auto", " AUTO "} {
		if b, err := ParseBackend(name); err != nil || b != BackendNative {
			t.Errorf("ParseBackend(%q) = %q, %v; want native", name, b, err)
		}
	}
	if _, err := ParseBackend("grpc"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestFactory_NativeFallsBackToJSONRPC(t *testing.T) {
	f := NewFactory(BackendNative, nil)

	h, err := f.New(context.Background(), domain.ChainEthereum, "ftp://evm.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := h.(*HTTPProvider); !ok {
		t.Fatalf("expected JSON-RPC fallback for an unsupported scheme, got %T", h)
	}
}

func TestSolanaHandle_TranslatesHTTPStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		throttled bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"blocked", http.StatusForbidden, true},
		{"unavailable", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(tt.status), tt.status)
			}))
			defer srv.Close()

			h := NewSolanaHandle(domain.ChainSolana, srv.URL)
			defer h.Close()

			err := h.Call(context.Background(), nil, "getHealth")
			var statusErr *HTTPStatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
				t.Fatalf("expected HTTPStatusError %d, got %v", tt.status, err)
			}
			if got := errors.Is(err, ErrThrottled); got != tt.throttled {
				t.Errorf("errors.Is(err, ErrThrottled) = %v, want %v", got, tt.throttled)
			}
		})
	}
}
