package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCheck string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List embedding models available on the provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().StringVar(&modelsCheck, "check", "", "check whether a specific model is available")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	if err := setup(); err != nil {
		return err
	}

	ctx := context.Background()

	if modelsCheck != "" {
		ok, err := provider.HasModel(ctx, modelsCheck)
		if err != nil {
			return err
		}
		if ok {
			cmd.Printf("Model %q is available.\n", modelsCheck)
		} else {
			cmd.Printf("Model %q is NOT available.\n", modelsCheck)
		}
		return nil
	}

	models, err := provider.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	if len(models) == 0 {
		cmd.Println("No models available.")
		cmd.Printf("Pull an embedding model first, e.g.: ollama pull %s\n", cfg.Ollama.DefaultModel)
		return nil
	}

	for _, m := range models {
		cmd.Printf("%-40s %10s  %s\n", m.Name, formatBytes(m.Size), m.ModifiedAt)
	}
	return nil
}
