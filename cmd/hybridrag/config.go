package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/chunker"
	"github.com/poiesic/hybridrag/core"
	"github.com/urfave/cli/v2"
)

// fileConfig is the layout of the --config TOML file. Missing keys keep
// their defaults.
//
//	chunk_size = 500
//	overlap = 50
//	short_queries = false
//
//	[session]
//	temperature = 0.7
//	sub_query_k = 2
//
//	[session.hybrid]
//	use_semantic = true
//	semantic_weight = 0.4
type fileConfig struct {
	ChunkSize    int           `toml:"chunk_size"`
	Overlap      int           `toml:"overlap"`
	ShortQueries bool          `toml:"short_queries"`
	Session      core.Settings `toml:"session"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		ChunkSize: chunker.DefaultChunkSize,
		Overlap:   chunker.DefaultOverlap,
		Session:   core.DefaultSettings(),
	}
}

// loadFileConfig reads path over the defaults. An empty path returns the defaults.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %w", core.ErrConfig, path, err)
	}
	if err := cfg.Session.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	host := c.String("host")
	embeddingHost := c.String("embedding-host")
	if embeddingHost == "" {
		embeddingHost = host
	}
	cfg := ai.NewConfig(
		ai.WithProvider(c.String("provider")),
		ai.WithHost(host),
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
		ai.WithRecognizerModel(c.String("recognizer-model")),
	)
	if key := c.String("api-key"); key != "" {
		cfg.APIKey = key
	}
	return cfg
}

func newChunker(cfg fileConfig) (*chunker.Chunker, error) {
	return chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.Overlap))
}
