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
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [chain]",
	Short: "Show recent failover transitions stored in PostgreSQL",
	Args:  cobra.ExactArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of transitions to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("database.url is required to read history")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database.Config, 5*time.Second, slog.Default())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	transitions, err := postgres.NewProbeRepo(db).RecentTransitions(ctx, domain.Normalize(args[0]), historyLimit)
	if err != nil {
		slog.Error("Failed to query transitions", "error", err)
		os.Exit(1)
	}
	printTransitions(os.Stdout, transitions)
}

func printTransitions(out io.Writer, transitions []failover.Transition) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "AT\tREASON\tFROM\tTO\tSTATE")
	for _, t := range transitions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.At.Format(time.RFC3339), t.Reason, t.FromURL, t.ToURL, t.State)
	}
	_ = w.Flush()
}
