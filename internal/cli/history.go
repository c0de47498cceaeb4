package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: GroupInspect,
	Short:   "Show recent backup runs and cataloged artifacts",
	Long: `Print the most recent run reports from the Redis stream (REDIS_ADDR)
and the newest artifacts from the PostgreSQL catalog (POSTGRES_URL).
At least one of the two must be configured.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	runs := a.openRunStream(ctx)
	catalog, closeCatalog := a.openCatalog(ctx)
	if runs == nil && catalog == nil {
		return errors.New("no history source available: set REDIS_ADDR or POSTGRES_URL")
	}
	if runs != nil {
		defer runs.Close()
	}
	if catalog != nil {
		defer closeCatalog()
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	if runs != nil {
		reports, err := runs.RecentRuns(ctx, int64(historyLimit))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "RUN\tOUTCOME\tSTARTED\tDURATION\tFILES\tARTIFACT")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				r.RunID, r.Outcome, r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond), r.FileCount, r.ArtifactPath)
		}
		fmt.Fprintln(w)
	}

	if catalog != nil {
		artifacts, err := catalog.ListArtifacts(ctx, historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ARTIFACT\tSIZE\tCREATED\tENCODING\tRUN")
		for _, art := range artifacts {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
				art.Path, art.SizeBytes, art.CreatedAt.Format(time.RFC3339), art.Encoding, art.RunID)
		}
	}
	return nil
}
