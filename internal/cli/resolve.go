package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [chain]",
	Short: "List the endpoint candidates of a chain in failover order",
	Args:  cobra.ExactArgs(1),
	Run:   runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	alias := domain.Normalize(args[0])
	r := resolver.New(nil, slog.Default())
	candidates := resolver.WithFallbacks(r.Candidates(alias), cfg.Fallbacks()[alias]...)

	if len(candidates) == 0 {
		fmt.Printf("%s: %s\n", alias, domain.ReasonNotConfigured)
		os.Exit(1)
	}
	printCandidates(os.Stdout, alias, candidates)
}

func printCandidates(out io.Writer, alias domain.ChainAlias, candidates []domain.EndpointCandidate) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "# %s (%s)\n", alias, alias.Family())
	_, _ = fmt.Fprintln(w, "INDEX\tSOURCE\tURL")
	for i, c := range candidates {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", i, c.Source, c.URL)
	}
	_ = w.Flush()
}
