package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/probe"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
	"github.com/vietddude/rpcwatch/internal/strategy/scoring"
)

var (
	scoreFeatures scoring.Features
	scoreChain    string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one opportunity with the configured scorer",
	Run:   runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Float64Var(&scoreFeatures.SpreadBps, "spread-bps", 0, "spread in basis points")
	f.Float64Var(&scoreFeatures.LiquidityUSD, "liquidity-usd", 0, "available liquidity in USD")
	f.Float64Var(&scoreFeatures.GasCostUSD, "gas-usd", 0, "expected gas cost in USD")
	f.Float64Var(&scoreFeatures.Volatility, "volatility", 0, "volatility between 0 and 1")
	f.Float64Var(&scoreFeatures.RPCLatencyMS, "latency-ms", 0, "RPC latency in ms (probed from --chain when zero)")
	f.StringVar(&scoreChain, "chain", "", "chain whose endpoint latency feeds the score")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	scorer := scoring.Select(cfg.Scoring.ModelPath, cfg.Scoring.MinConfidence, slog.Default())

	f := scoreFeatures
	if scoreChain != "" && f.RPCLatencyMS == 0 {
		alias := domain.Normalize(scoreChain)
		r := resolver.New(nil, slog.Default())
		url, ok := r.ResolveRPCURL(alias, cfg.Fallbacks()[alias]...)
		if !ok {
			slog.Error("No RPC endpoint configured", "chain", alias)
			os.Exit(1)
		}

		res := probe.New(r, slog.Default()).Probe(context.Background(), alias, url, cfg.Failover.ProbeTimeout)
		if !res.Healthy() {
			slog.Warn("Endpoint probe failed, scoring without latency", "chain", alias, "error", res.Error)
		} else {
			f.RPCLatencyMS = float64(res.Latency) / float64(time.Millisecond)
		}
	}

	printDecision(os.Stdout, f, scorer.Score(f))
}

func printDecision(out io.Writer, f scoring.Features, d scoring.Decision) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "SPREAD BPS\tLIQUIDITY USD\tGAS USD\tVOLATILITY\tLATENCY MS\tCONFIDENCE\tEXECUTE\tSCORER")
	_, _ = fmt.Fprintf(w, "%.2f\t%.2f\t%.2f\t%.2f\t%.1f\t%.3f\t%t\t%s\n",
		f.SpreadBps, f.LiquidityUSD, f.GasCostUSD, f.Volatility, f.RPCLatencyMS, d.Confidence, d.Execute, d.Source)
	_ = w.Flush()
}
