package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := setup(); err != nil {
		return err
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	cmd.Printf("Documents:  %d\n", stats.DocumentCount)
	cmd.Printf("Chunks:     %d\n", stats.ChunkCount)
	cmd.Printf("Embeddings: %d\n", stats.EmbeddingCount)
	cmd.Printf("Size:       %s\n", formatBytes(stats.SizeBytes))

	if stats.DocumentCount > 0 {
		cmd.Printf("Chunks/doc: %.1f\n", float64(stats.ChunkCount)/float64(stats.DocumentCount))
	}
	if stats.ChunkCount > 0 {
		cmd.Printf("Coverage:   %.0f%%\n", 100*float64(stats.EmbeddingCount)/float64(stats.ChunkCount))
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
