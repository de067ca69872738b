package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the database and refresh statistics",
	Long: `Runs VACUUM to reclaim unused space and ANALYZE to refresh the query
planner's statistics. Safe to run at any time; blocks other writers.`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	if err := setup(); err != nil {
		return err
	}

	ctx := context.Background()
	if err := store.Vacuum(ctx); err != nil {
		return err
	}
	if err := store.Analyze(ctx); err != nil {
		return err
	}

	cmd.Println("Database optimized.")
	return nil
}
