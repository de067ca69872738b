package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/chunker"
	"github.com/semdex/semdex/internal/core/services"
)

var (
	ingestRecursive bool
	ingestModel     string
	ingestChunkSize int
	ingestOverlap   int
	ingestSemantic  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a file or directory",
	Long: `Reads text files (.txt, .md, .markdown, or extensionless), splits them
into chunks, embeds each chunk, and stores the vectors. Files whose content
was already ingested are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "descend into subdirectories")
	ingestCmd.Flags().StringVarP(&ingestModel, "model", "m", "", "embedding model (overrides config)")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "characters per chunk (overrides config)")
	ingestCmd.Flags().IntVar(&ingestOverlap, "overlap", -1, "overlapping characters between chunks (overrides config)")
	ingestCmd.Flags().BoolVar(&ingestSemantic, "semantic", false, "pack sentences instead of fixed windows")
	rootCmd.AddCommand(ingestCmd)
}

// ingestStrategy resolves the chunking strategy from flags over config.
func ingestStrategy() chunker.Strategy {
	strategy := cfg.Strategy()

	if ingestSemantic {
		strategy = chunker.Semantic(cfg.Chunking.MaxChunkSize)
	}
	if ingestChunkSize > 0 {
		strategy.Size = ingestChunkSize
		strategy.MaxSize = ingestChunkSize
	}
	if ingestOverlap >= 0 {
		strategy.Overlap = ingestOverlap
	}
	return strategy
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}

	model := ingestModel
	if model == "" {
		model = cfg.Ollama.DefaultModel
	}

	ctx := context.Background()
	if !provider.HealthCheck(ctx) {
		return fmt.Errorf("embedding provider at %s is not reachable; is ollama running?", cfg.Ollama.BaseURL)
	}

	ok, err := provider.HasModel(ctx, model)
	if err != nil {
		return fmt.Errorf("checking model availability: %w", err)
	}
	if !ok {
		return fmt.Errorf("model %q is not available; pull it first (ollama pull %s)", model, model)
	}

	files, err := services.CollectFiles(args[0], ingestRecursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmd.Println("No ingestable files found.")
		return nil
	}

	svc := services.NewIngestionService(store, provider, model, ingestStrategy())
	results, err := svc.IngestFiles(ctx, files)
	if err != nil {
		return err
	}

	var ingested, skipped, chunks, embeddings int
	for _, res := range results {
		if res.Skipped {
			skipped++
			cmd.Printf("  skip %s (%s)\n", res.Path, res.Reason)
			continue
		}
		ingested++
		chunks += res.ChunksCreated
		embeddings += res.EmbeddingsCreated
		cmd.Printf("  ok   %s (%d chunks)\n", res.Path, res.ChunksCreated)
	}

	cmd.Printf("\nIngested %d file(s), skipped %d, %d chunks, %d embeddings.\n",
		ingested, skipped, chunks, embeddings)
	return nil
}
