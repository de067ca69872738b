// Package cli wires the cobra command tree to the core services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/adapters/driven/embedding/ollama"
	"github.com/semdex/semdex/internal/adapters/driven/storage/sqlite"
	"github.com/semdex/semdex/internal/config"
	"github.com/semdex/semdex/internal/core/ports/driven"
	"github.com/semdex/semdex/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Services are package-level so tests can inject fakes before Execute.
var (
	cfg      *config.Config
	store    driven.VectorStore
	provider driven.EmbeddingProvider
)

var rootCmd = &cobra.Command{
	Use:   "semdex",
	Short: "Local semantic search over your documents",
	Long: `semdex ingests text documents, embeds them with a local Ollama model,
and answers similarity queries against the stored vectors.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// setup loads configuration and builds the store and provider. Pre-injected
// services (from tests) are kept as-is.
func setup() error {
	if cfg == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if store == nil {
		s, err := sqlite.NewStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		store = s
	}

	if provider == nil {
		provider = ollama.NewClient(ollama.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Timeout: cfg.Timeout(),
		})
	}

	return nil
}

func teardown() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
		store = nil
	}
}
