package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/semdex/semdex/internal/adapters/driven/storage/sqlite"
	"github.com/semdex/semdex/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and database",
	Long: `Writes a default config file and initializes the database schema.
An existing config file is left untouched unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil && !initForce {
		cmd.Printf("Config already exists at %s\n", path)
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		cmd.Printf("Created config at %s\n", path)
	}

	s, err := sqlite.NewStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer s.Close()

	cmd.Printf("Database ready at %s\n", s.Path())
	return nil
}
