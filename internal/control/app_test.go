package control

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vietddude/rpcwatch/internal/core/config"
	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/health"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
)

// rpcServer answers every JSON-RPC request with result.
func rpcServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Server.Port = 0
	cfg.Failover.Backend = "jsonrpc"
	cfg.Failover.ProbeTimeout = 2 * time.Second
	return cfg
}

func TestNewApp_WiresConfiguredChains(t *testing.T) {
	evm := rpcServer(t, `"0x1"`)
	sol := rpcServer(t, `"ok"`)
	custom := rpcServer(t, `"0x2a"`)

	cfg := testConfig(t)
	cfg.Chains = []config.ChainConfig{{Alias: "Custom", Endpoints: []string{custom.URL}}}

	env := resolver.MapEnv{
		"EVM_RPC_URL":    evm.URL,
		"SOLANA_RPC_URL": sol.URL,
	}

	app, err := NewApp(context.Background(), cfg, env, nil)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	for _, alias := range []domain.ChainAlias{domain.ChainEVM, domain.ChainSolana, "custom"} {
		if _, ok := app.Registry().Get(alias); !ok {
			t.Errorf("expected manager for %s", alias)
		}
	}

	if url, _ := app.Registry().CurrentURL(domain.ChainSolana); url != sol.URL {
		t.Errorf("solana current URL = %q, want %q", url, sol.URL)
	}
	if app.Scorer().Name() != "rules" {
		t.Errorf("expected rule scorer without model, got %s", app.Scorer().Name())
	}

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/rpc?chains=evm,solana,custom")
	if err != nil {
		t.Fatalf("GET /health/rpc: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool              `json:"ok"`
		Health map[string]string `json:"health"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !body.OK {
		t.Fatalf("expected healthy report, got %d %+v", resp.StatusCode, body)
	}
	if body.Health["custom"] != "healthy" {
		t.Errorf("expected custom chain healthy, got %q", body.Health["custom"])
	}

	// the scorer reads the latency of the chain's current endpoint
	m, _ := app.Registry().Get(domain.ChainEVM)
	m.Sweep(context.Background())

	scoreResp, err := http.Post(srv.URL+"/score", "application/json",
		strings.NewReader(`{"chain":"evm","spread_bps":50,"liquidity_usd":100000,"gas_cost_usd":1}`))
	if err != nil {
		t.Fatalf("POST /score: %v", err)
	}
	defer scoreResp.Body.Close()

	var scored health.ScoreResponse
	if err := json.NewDecoder(scoreResp.Body).Decode(&scored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if scoreResp.StatusCode != http.StatusOK || scored.Source != app.Scorer().Name() {
		t.Fatalf("unexpected score response %d %+v", scoreResp.StatusCode, scored)
	}
	if scored.Features.RPCLatencyMS <= 0 {
		t.Errorf("expected latency from the evm endpoint, got %v", scored.Features.RPCLatencyMS)
	}
}

func TestNewApp_SkipsUnconfiguredChains(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), resolver.MapEnv{}, nil)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if n := len(app.Registry().All()); n != 0 {
		t.Errorf("expected no managers without endpoints, got %d", n)
	}
}

func TestNewApp_InvalidBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Failover.Backend = "grpc"

	if _, err := NewApp(context.Background(), cfg, resolver.MapEnv{}, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestApp_RedisStatusAndLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	evm := rpcServer(t, `"0x1"`)

	cfg := testConfig(t)
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Failover.SweepInterval = time.Hour

	app, err := NewApp(context.Background(), cfg, resolver.MapEnv{"EVM_RPC_URL": evm.URL}, nil)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// the first sweep runs immediately after Start
	deadline := time.Now().Add(3 * time.Second)
	for {
		probes, err := app.History().RecentProbes(context.Background(), domain.ChainEVM, 10)
		if err != nil {
			t.Fatalf("RecentProbes() error = %v", err)
		}
		if len(probes) > 0 && mr.Exists("rpcwatch:status:evm") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweep results were not recorded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	// closing twice is harmless
	app.Close()
}
