package cli

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/health"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/strategy/scoring"
)

func TestPrintReport(t *testing.T) {
	report := health.Report{
		OK: false,
		Details: map[string]health.ChainDetail{
			"solana": {Status: domain.HealthUnavailable, Error: domain.ReasonNotConfigured},
			"evm":    {Status: domain.HealthHealthy, RPCURL: "https://eth.example"},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[1], "evm") || !strings.Contains(lines[1], "https://eth.example") {
		t.Errorf("unexpected evm row %q", lines[1])
	}
	if !strings.Contains(lines[2], "RPC URL not configured") || !strings.Contains(lines[2], "-") {
		t.Errorf("unexpected solana row %q", lines[2])
	}
}

func TestPrintCandidates(t *testing.T) {
	var buf bytes.Buffer
	printCandidates(&buf, domain.ChainSolana, []domain.EndpointCandidate{
		{URL: "https://a.example", Source: domain.SourcePrimary},
		{URL: "https://b.example", Source: domain.SourceFallback},
	})

	out := buf.String()
	if !strings.Contains(out, "# solana (solana)") {
		t.Errorf("missing header in %q", out)
	}
	if strings.Index(out, "https://a.example") > strings.Index(out, "https://b.example") {
		t.Errorf("candidates out of order: %q", out)
	}
}

func TestPrintStatusesAndTransitions(t *testing.T) {
	var buf bytes.Buffer
	printStatuses(&buf, []failover.Status{{
		Chain:        domain.ChainEVM,
		State:        failover.StateExhausted,
		CurrentIndex: 0,
		PoolSize:     2,
		CurrentURL:   "https://a.example",
	}})
	if !strings.Contains(buf.String(), "exhausted") || !strings.Contains(buf.String(), "0/2") {
		t.Errorf("unexpected status output %q", buf.String())
	}

	buf.Reset()
	printTransitions(&buf, []failover.Transition{{
		Reason:  failover.ReasonRestore,
		FromURL: "https://b.example",
		ToURL:   "https://a.example",
		State:   failover.StateActive,
		At:      time.Now(),
	}})
	if !strings.Contains(buf.String(), "restore") {
		t.Errorf("unexpected history output %q", buf.String())
	}
}

func TestPrintDecision(t *testing.T) {
	f := scoring.Features{SpreadBps: 50, LiquidityUSD: 100000, GasCostUSD: 1, RPCLatencyMS: 12.5}
	d := scoring.NewRuleScorer(0.5).Score(f)

	var buf bytes.Buffer
	printDecision(&buf, f, d)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and 1 row, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "true") || !strings.Contains(lines[1], "rules") || !strings.Contains(lines[1], "12.5") {
		t.Errorf("unexpected decision row %q", lines[1])
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"info", true, slog.LevelDebug},
		{"debug", false, slog.LevelDebug},
		{"warn", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
	}
	for _, tt := range tests {
		if got := logLevel(tt.level, tt.debug); got != tt.want {
			t.Errorf("logLevel(%q, %v) = %v, want %v", tt.level, tt.debug, got, tt.want)
		}
	}
}
