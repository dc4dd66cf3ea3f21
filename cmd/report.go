package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lazyload/infra/journal"
	"github.com/kilianp07/lazyload/pkg/export"
)

var (
	reportJournal string
	reportFeature string
	reportSince   time.Duration
	reportFormat  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise load latency and failures from the event journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := journal.Query{Feature: reportFeature}
		if reportSince > 0 {
			q.Start = time.Now().Add(-reportSince)
		}
		evs, err := journal.Read(cmd.Context(), reportJournal, q)
		if err != nil {
			return err
		}
		stats := journal.Summarize(evs)
		switch reportFormat {
		case "json":
			return export.WriteJSON(cmd.OutOrStdout(), stats)
		case "csv":
			return export.WriteCSV(cmd.OutOrStdout(), stats)
		case "table":
		default:
			return fmt.Errorf("unknown format %q", reportFormat)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FEATURE\tLOADS\tFAILED\tPRELOAD_FAILED\tRETRIES\tMEAN\tP50\tP95")
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
				s.Feature, s.Loads, s.Failures, s.Preloads, s.Retries, s.Mean, s.P50, s.P95)
		}
		return w.Flush()
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportJournal, "journal", "events.jsonl", "journal file")
	reportCmd.Flags().StringVar(&reportFeature, "feature", "", "only report this feature")
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only include events newer than this")
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "output format: table, json or csv")
	rootCmd.AddCommand(reportCmd)
}
