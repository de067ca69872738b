package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/adapters/driving/httpapi"
	"github.com/semdex/semdex/internal/logger"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serves search, stats, models, and health over HTTP.
The API is read-only; ingestion happens through the CLI.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 8384, "listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(store, provider, cfg.Ollama.DefaultModel,
		cfg.Search.DefaultTopK, cfg.Search.SimilarityThreshold)

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	cmd.Printf("Listening on http://%s\n", addr)
	logger.Info("serving API on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}
