package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/core/services"
)

var (
	searchTopK      int
	searchThreshold float32
	searchFormat    string
	searchModel     string
	searchNoScores  bool
	searchExplain   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Embeds the query and ranks stored chunks by cosine similarity.
Only chunks embedded with the same model are searched.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of results (0 = config default)")
	searchCmd.Flags().Float32VarP(&searchThreshold, "threshold", "t", -1, "minimum similarity (negative = config default)")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "text", "output format: text, json, or csv")
	searchCmd.Flags().StringVarP(&searchModel, "model", "m", "", "embedding model (overrides config)")
	searchCmd.Flags().BoolVar(&searchNoScores, "no-scores", false, "hide similarity scores in text output")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "show document and chunk ids per result")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}

	model := searchModel
	if model == "" {
		model = cfg.Ollama.DefaultModel
	}

	opts := services.SearchOptions{
		TopK:      searchTopK,
		Threshold: searchThreshold,
	}
	if opts.TopK <= 0 {
		opts.TopK = cfg.Search.DefaultTopK
	}
	if opts.Threshold < 0 {
		opts.Threshold = cfg.Search.SimilarityThreshold
	}

	svc := services.NewSearchService(store, provider, model)
	results, err := svc.Search(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch searchFormat {
	case "text":
		cmd.Print(services.FormatText(results, !searchNoScores))
		if searchExplain {
			cmd.Printf("model=%s top_k=%d threshold=%.2f\n", model, opts.TopK, opts.Threshold)
			for i, r := range results {
				cmd.Printf("  %d: document=%d chunk=%d tokens=%d\n",
					i+1, r.Document.ID, r.Chunk.ID, r.Chunk.TokenCount)
			}
		}
	case "json":
		out, err := services.FormatJSON(results)
		if err != nil {
			return err
		}
		cmd.Print(out)
	case "csv":
		out, err := services.FormatCSV(results)
		if err != nil {
			return err
		}
		cmd.Print(out)
	default:
		return fmt.Errorf("unknown format %q (want text, json, or csv)", searchFormat)
	}

	return nil
}
