package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/keyhawk/pkg/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show resource counts for the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			stats, err := a.keygen.Stats(ctx)
			if err != nil {
				return err
			}
			if a.format != output.FormatTable {
				return output.Render(a.format, stats, nil)
			}
			output.KeyValue([][2]string{
				{"Products", strconv.Itoa(stats.Products)},
				{"Policies", strconv.Itoa(stats.Policies)},
				{"Licenses", strconv.Itoa(stats.Licenses)},
				{"Users", strconv.Itoa(stats.Users)},
				{"Machines", strconv.Itoa(stats.Machines)},
			})
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
