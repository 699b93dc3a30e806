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
	redisclient "github.com/vietddude/rpcwatch/internal/infra/redis"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the failover state published by running instances",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Redis.URL == "" {
		slog.Error("redis.url is required to read published status")
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := redisclient.NewClient(ctx, cfg.Redis, 5*time.Second, slog.Default())
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	store := redisclient.NewStatusStore(client, cfg.Redis.StatusTTL)

	var statuses []failover.Status
	for _, alias := range domain.Known() {
		st, found, err := store.LoadStatus(ctx, alias)
		if err != nil {
			slog.Warn("Failed to load status", "chain", alias, "error", err)
			continue
		}
		if found {
			statuses = append(statuses, st)
		}
	}
	printStatuses(os.Stdout, statuses)
}

func printStatuses(out io.Writer, statuses []failover.Status) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tSTATE\tCURRENT\tURL\tERRORS\tLAST SWEEP")
	for _, st := range statuses {
		sweep := "-"
		if !st.LastSweepAt.IsZero() {
			sweep = st.LastSweepAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%d\t%s\n",
			st.Chain, st.State, st.CurrentIndex, st.PoolSize, st.CurrentURL, st.ConsecutiveErrors, sweep)
	}
	_ = w.Flush()
}
