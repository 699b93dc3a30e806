package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/probe"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/provider"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
)

var callTimeout time.Duration

var callCmd = &cobra.Command{
	Use:   "call [chain] [method] [json params]",
	Short: "Send one JSON-RPC request through the chain's failover pool",
	Args:  cobra.RangeArgs(2, 3),
	Run:   runCall,
}

func init() {
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "overall deadline including retries")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	var params []any
	if len(args) == 3 {
		if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
			slog.Error("Params must be a JSON array", "error", err)
			os.Exit(1)
		}
	}

	backend, err := provider.ParseBackend(cfg.Failover.Backend)
	if err != nil {
		slog.Error("Invalid backend", "error", err)
		os.Exit(1)
	}

	alias := domain.Normalize(args[0])
	r := resolver.New(nil, slog.Default())
	candidates := resolver.WithFallbacks(r.Candidates(alias), cfg.Fallbacks()[alias]...)

	m, err := failover.New(alias, candidates, provider.NewFactory(backend, slog.Default()), probe.New(r, slog.Default()),
		failover.Config{ErrorThreshold: 1, ProbeTimeout: cfg.Failover.ProbeTimeout}, slog.Default())
	if err != nil {
		slog.Error("Failed to create failover manager", "error", err)
		os.Exit(1)
	}
	defer m.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var result json.RawMessage
	err = failover.Do(ctx, m, failover.DefaultRetryConfig, func(ctx context.Context, h provider.Handle) error {
		return h.Call(ctx, &result, args[1], params...)
	})
	if err != nil {
		slog.Error("Call failed", "chain", alias, "method", args[1], "error", err)
		os.Exit(1)
	}

	slog.Debug("Call succeeded", "chain", alias, "url", m.CurrentRPCURL())
	fmt.Println(string(result))
}
