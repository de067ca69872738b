// Package config loads and persists the TOML configuration file. All
// tunables live in one explicit Config value passed into constructors;
// nothing reads configuration from ambient state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/semdex/semdex/internal/chunker"
	"github.com/semdex/semdex/internal/core/domain"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "nomic-embed-text"

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Ollama   OllamaConfig   `toml:"ollama"`
	Chunking ChunkingConfig `toml:"chunking"`
	Search   SearchConfig   `toml:"search"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path to the database file. Empty means the store's default location.
	Path string `toml:"path"`
}

// OllamaConfig configures the embedding provider.
type OllamaConfig struct {
	BaseURL        string `toml:"base_url"`
	DefaultModel   string `toml:"default_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ChunkingConfig configures how documents are split.
type ChunkingConfig struct {
	// Strategy is "fixed" or "semantic".
	Strategy     string `toml:"strategy"`
	MaxChunkSize int    `toml:"max_chunk_size"`
	OverlapSize  int    `toml:"overlap_size"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	DefaultTopK         int     `toml:"default_top_k"`
	SimilarityThreshold float32 `toml:"similarity_threshold"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			DefaultModel:   DefaultModel,
			TimeoutSeconds: 30,
		},
		Chunking: ChunkingConfig{
			Strategy:     "fixed",
			MaxChunkSize: chunker.DefaultSize,
			OverlapSize:  chunker.DefaultOverlap,
		},
		Search: SearchConfig{
			DefaultTopK:         5,
			SimilarityThreshold: 0.0,
		},
	}
}

// DefaultPath returns the default config file location, ~/.semdex/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".semdex", "config.toml"), nil
}

// Load reads configuration from path. An empty path falls back to the
// default location; a missing file at the default location yields defaults,
// while an explicitly named missing file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
// An empty path writes to the default location.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Timeout returns the provider timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}

// Strategy converts the chunking section into a chunker strategy.
func (c *Config) Strategy() chunker.Strategy {
	if c.Chunking.Strategy == "semantic" {
		return chunker.Semantic(c.Chunking.MaxChunkSize)
	}
	return chunker.FixedSize(c.Chunking.MaxChunkSize, c.Chunking.OverlapSize)
}

func (c *Config) validate() error {
	switch c.Chunking.Strategy {
	case "fixed", "semantic":
	default:
		return fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidInput, c.Chunking.Strategy)
	}
	if c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max_chunk_size must be positive", domain.ErrInvalidInput)
	}
	if c.Chunking.OverlapSize < 0 {
		return fmt.Errorf("%w: overlap_size must not be negative", domain.ErrInvalidInput)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("%w: default_top_k must be positive", domain.ErrInvalidInput)
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout_seconds must be positive", domain.ErrInvalidInput)
	}
	return nil
}
