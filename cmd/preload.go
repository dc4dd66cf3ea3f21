package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var preloadTimeout time.Duration

var preloadCmd = &cobra.Command{
	Use:   "preload <route>",
	Short: "Warm the features predicted for a route and report their state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer func() { _ = svc.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), preloadTimeout)
		defer cancel()
		statuses, err := svc.Preload(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FEATURE\tSTATE\tATTEMPTS\tDURATION\tERROR")
		for _, st := range statuses {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", st.Name, st.State, st.Attempts, st.Duration, st.LastError)
		}
		return w.Flush()
	},
}

func init() {
	preloadCmd.Flags().DurationVar(&preloadTimeout, "timeout", 30*time.Second, "maximum time to wait for the queue to drain")
	rootCmd.AddCommand(preloadCmd)
}
