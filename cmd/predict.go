package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lazyload/config"
)

var predictCmd = &cobra.Command{
	Use:   "predict <route>",
	Short: "Print the features predicted for a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		table, err := cfg.PredictionTable()
		if err != nil {
			return err
		}
		for _, name := range table.Predict(args[0]) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
}
