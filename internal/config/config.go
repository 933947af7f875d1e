package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (REGLENS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: REGLENS_PROVIDER -> provider,
	// REGLENS_SEARCH_LEXICAL_SCALE -> search.lexical_scale, etc.
	if err := k.Load(env.Provider("REGLENS_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "REGLENS_"))
		for _, section := range []string{"chunking", "index", "search", "extraction", "store"} {
			if strings.HasPrefix(s, section+"_") {
				return section + "." + strings.TrimPrefix(s, section+"_")
			}
		}
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

// validBackends is the set of recognized index backends.
var validBackends = map[IndexBackend]bool{
	IndexMemory:   true,
	IndexPostgres: true,
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q (must be one of: anthropic, openai, ollama)", c.Provider)
	}
	if !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q (must be one of: anthropic, openai, ollama)", c.EmbeddingProvider)
	}
	if !validBackends[c.Index.Backend] {
		return fmt.Errorf("invalid index backend %q (must be one of: memory, postgres)", c.Index.Backend)
	}
	if c.Index.Backend == IndexPostgres && c.Index.PostgresURL == "" {
		return fmt.Errorf("index.postgres_url is required for the postgres backend")
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must not be negative, got %d", c.Chunking.Overlap)
	}
	if c.Search.VectorWeight < 0 || c.Search.TextWeight < 0 {
		return fmt.Errorf("search weights must not be negative")
	}
	if c.Search.LexicalScale <= 0 {
		return fmt.Errorf("search.lexical_scale must be positive, got %g", c.Search.LexicalScale)
	}
	if c.Extraction.DraftBatchSize <= 0 {
		return fmt.Errorf("extraction.draft_batch_size must be positive, got %d", c.Extraction.DraftBatchSize)
	}
	return nil
}
