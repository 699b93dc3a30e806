package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/probe"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
	"github.com/vietddude/rpcwatch/internal/strategy/scoring"
)

// =============================================================================
// Helpers
// =============================================================================

func rpcStub(t *testing.T, result string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + result + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type staticURLs map[domain.ChainAlias]string

func (s staticURLs) CurrentURL(chain domain.ChainAlias) (string, bool) {
	u, ok := s[chain]
	return u, ok
}

type staticStatuses []failover.Status

func (s staticStatuses) Statuses() []failover.Status { return s }

func newChecker(env resolver.MapEnv, managers URLSource) *Checker {
	r := resolver.New(env, nil)
	return NewChecker(probe.New(r, nil), r, managers, nil, time.Second, nil)
}

// =============================================================================
// Tests
// =============================================================================

func TestParseChains(t *testing.T) {
	tests := []struct {
		raw     string
		want    []string
		wantErr bool
	}{
		{"", DefaultChains, false},
		{"evm", []string{"evm"}, false},
		{" evm , solana,,worldchain-sepolia ", []string{"evm", "solana", "worldchain-sepolia"}, false},
		{",,,", nil, true},
		{"   ", nil, true},
		{"evm,<script>", nil, true},
		{"evm;solana", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseChains(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidChainList) {
				t.Errorf("ParseChains(%q) error = %v, want ErrInvalidChainList", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChains(%q) unexpected error %v", tt.raw, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseChains(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseChains(%q) = %v, want %v", tt.raw, got, tt.want)
				break
			}
		}
	}
}

func TestCheck_UnknownChainDegrades(t *testing.T) {
	evm := rpcStub(t, "0x1")
	c := newChecker(resolver.MapEnv{"EVM_RPC_URL": evm.URL}, nil)

	report := c.Check(t.Context(), []string{"evm", "bogus_chain"})

	if report.OK {
		t.Fatal("expected ok=false")
	}
	if report.Health["evm"] != domain.HealthHealthy {
		t.Errorf("expected evm healthy, got %s (%s)", report.Health["evm"], report.Details["evm"].Error)
	}
	if report.Details["evm"].RPCURL != evm.URL {
		t.Errorf("expected rpc url %s, got %s", evm.URL, report.Details["evm"].RPCURL)
	}
	bogus := report.Details["bogus_chain"]
	if bogus.Status != domain.HealthUnavailable || bogus.Error != domain.ReasonNotConfigured {
		t.Errorf("unexpected bogus chain detail %+v", bogus)
	}
}

func TestChainDetail_JSONAlwaysHasRPCURL(t *testing.T) {
	raw, err := json.Marshal(ChainDetail{Status: domain.HealthUnavailable, Error: domain.ReasonNotConfigured})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"rpcUrl":null`) {
		t.Errorf("expected null rpcUrl, got %s", raw)
	}

	raw, _ = json.Marshal(map[string]ChainDetail{"evm": {Status: domain.HealthHealthy, RPCURL: "https://eth.example"}})
	var back map[string]ChainDetail
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back["evm"].RPCURL != "https://eth.example" || strings.Contains(string(raw), "error") {
		t.Errorf("unexpected encoding %s", raw)
	}
}

func TestCheck_NormalizesAndDedupes(t *testing.T) {
	sol := rpcStub(t, "ok")
	c := newChecker(resolver.MapEnv{"SOLANA_RPC_URL": sol.URL}, nil)

	report := c.Check(t.Context(), []string{"SOL", "solana_devnet", "Solana"})
	if !report.OK {
		t.Fatalf("expected ok, got %+v", report)
	}
	if len(report.Health) != 1 {
		t.Fatalf("expected one normalized key, got %v", report.Health)
	}
	if _, ok := report.Health["solana"]; !ok {
		t.Fatalf("expected solana key, got %v", report.Health)
	}
}

func TestCheck_ManagerURLWins(t *testing.T) {
	live := rpcStub(t, "0x1")
	c := newChecker(resolver.MapEnv{"EVM_RPC_URL": "http://127.0.0.1:1"}, staticURLs{domain.ChainEVM: live.URL})

	report := c.Check(t.Context(), []string{"evm"})
	if !report.OK || report.Details["evm"].RPCURL != live.URL {
		t.Fatalf("expected manager URL to be probed, got %+v", report)
	}
}

func TestServer_RPCHealth(t *testing.T) {
	evm := rpcStub(t, "0x1")
	sol := rpcStub(t, "ok")
	c := newChecker(resolver.MapEnv{"EVM_RPC_URL": evm.URL, "SOLANA_RPC_URL": sol.URL}, nil)
	h := NewServer(c, nil, nil, nil, 0).Handler()

	tests := []struct {
		name   string
		target string
		status int
		ok     bool
		keys   int
	}{
		{"all healthy", "/health/rpc?chains=evm,solana", http.StatusOK, true, 2},
		{"defaults", "/health/rpc", http.StatusOK, true, 3},
		{"unknown chain", "/health/rpc?chains=evm,bogus_chain", http.StatusServiceUnavailable, false, 2},
		{"empty list", "/health/rpc?chains=", http.StatusBadRequest, false, 0},
		{"garbage", "/health/rpc?chains=%3Cscript%3E", http.StatusBadRequest, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}

			var body struct {
				OK      bool                   `json:"ok"`
				Error   string                 `json:"error"`
				Health  map[string]string      `json:"health"`
				Details map[string]ChainDetail `json:"details"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.OK != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, body.OK)
			}
			if len(body.Health) != tt.keys {
				t.Errorf("expected %d chains, got %v", tt.keys, body.Health)
			}
			if tt.status == http.StatusBadRequest && body.Error == "" {
				t.Error("expected error field on bad request")
			}
		})
	}
}

func TestServer_LivenessAndFailover(t *testing.T) {
	statuses := staticStatuses{{Chain: domain.ChainEVM, PoolSize: 2, State: failover.StateActive}}
	h := NewServer(newChecker(resolver.MapEnv{}, nil), statuses, nil, nil, 0).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/failover", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Managers []failover.Status `json:"managers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Managers) != 1 || body.Managers[0].Chain != domain.ChainEVM {
		t.Fatalf("unexpected managers %+v", body.Managers)
	}
}

func TestServer_Score(t *testing.T) {
	statuses := staticStatuses{{
		Chain:        domain.ChainEVM,
		CurrentIndex: 0,
		PoolSize:     1,
		Endpoints:    []failover.EndpointStatus{{URL: "https://evm.example", Latency: 2 * time.Second}},
	}}
	h := NewServer(newChecker(resolver.MapEnv{}, nil), statuses, scoring.NewRuleScorer(0.5), nil, 0).Handler()

	tests := []struct {
		name      string
		body      string
		status    int
		latencyMS float64
	}{
		{"latency from current endpoint", `{"chain":"EVM","spread_bps":50,"liquidity_usd":100000,"gas_cost_usd":1}`, http.StatusOK, 2000},
		{"explicit latency kept", `{"chain":"evm","spread_bps":50,"liquidity_usd":100000,"gas_cost_usd":1,"rpc_latency_ms":10}`, http.StatusOK, 10},
		{"unmanaged chain", `{"chain":"solana","spread_bps":50,"liquidity_usd":100000,"gas_cost_usd":1}`, http.StatusOK, 0},
		{"invalid body", `{"spread_bps":`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}

			var resp ScoreResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Features.RPCLatencyMS != tt.latencyMS {
				t.Errorf("expected latency %vms, got %v", tt.latencyMS, resp.Features.RPCLatencyMS)
			}
			if resp.Source != "rules" || !resp.Execute || resp.Confidence <= 0.5 {
				t.Errorf("unexpected decision %+v", resp.Decision)
			}
		})
	}
}

func TestServer_ScoreDisabled(t *testing.T) {
	h := NewServer(newChecker(resolver.MapEnv{}, nil), nil, nil, nil, 0).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(`{}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a scorer, got %d", rec.Code)
	}
}
