package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/rpcwatch/internal/health"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/probe"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
)

var (
	checkChains string
	checkJSON   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the configured endpoint of each chain once",
	Run:   runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkChains, "chains", "", "comma separated chains (defaults from config)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	chains := cfg.Health.DefaultChains
	if checkChains != "" {
		var err error
		if chains, err = health.ParseChains(checkChains); err != nil {
			slog.Error("Invalid --chains", "error", err)
			os.Exit(1)
		}
	}

	r := resolver.New(nil, slog.Default())
	checker := health.NewChecker(probe.New(r, slog.Default()), r, nil, cfg.Fallbacks(), cfg.Failover.ProbeTimeout, slog.Default())
	report := checker.Check(context.Background(), chains)

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printReport(os.Stdout, report)
	}

	if !report.OK {
		os.Exit(1)
	}
}

func printReport(out io.Writer, report health.Report) {
	names := make([]string, 0, len(report.Details))
	for name := range report.Details {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHAIN\tSTATUS\tRPC URL\tERROR")
	for _, name := range names {
		d := report.Details[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, d.Status, orDash(d.RPCURL), orDash(d.Error))
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
