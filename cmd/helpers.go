package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reglens/reglens/internal/config"
	"github.com/reglens/reglens/internal/embeddings"
	"github.com/reglens/reglens/internal/index"
	"github.com/reglens/reglens/internal/index/memory"
	"github.com/reglens/reglens/internal/index/postgres"
	"github.com/reglens/reglens/internal/llm"
	"github.com/reglens/reglens/internal/search"
	"github.com/reglens/reglens/internal/store"
	"github.com/reglens/reglens/internal/store/sqlite"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedder builds the embedding client from config. Clients are
// constructed once per process and passed down; nothing here is a singleton.
func createEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDimensions, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

func createProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.NewProvider(string(cfg.Provider), cfg.Model)
}

// persistentIndex is implemented by backends that snapshot to disk.
type persistentIndex interface {
	Persist(ctx context.Context, dir string) error
	Load(ctx context.Context, dir string) error
}

// openIndex constructs the configured index backend. For the memory backend
// an existing snapshot is loaded when present; mustExist makes a missing
// snapshot an error (read paths need an index built by a prior ingest).
func openIndex(ctx context.Context, cfg *config.Config, mustExist bool) (index.Index, error) {
	switch cfg.Index.Backend {
	case config.IndexPostgres:
		return postgres.New(ctx, cfg.Index.PostgresURL, cfg.EmbeddingDimensions)

	case config.IndexMemory:
		st, err := memory.New()
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
		dir := indexDir(cfg)
		if _, statErr := os.Stat(dir); statErr == nil {
			if err := st.Load(ctx, dir); err != nil {
				return nil, fmt.Errorf("loading index from %s: %w", dir, err)
			}
		} else if mustExist {
			return nil, fmt.Errorf("no index found at %s, run `reglens ingest` first", dir)
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Index.Backend)
	}
}

// persistIndex snapshots the index when the backend supports it.
func persistIndex(ctx context.Context, cfg *config.Config, idx index.Index) error {
	p, ok := idx.(persistentIndex)
	if !ok {
		return nil
	}
	return p.Persist(ctx, indexDir(cfg))
}

func indexDir(cfg *config.Config) string {
	return filepath.Join(cfg.Index.DataDir, "index")
}

// openRecords opens the record store when configured; nil means persistence
// is disabled.
func openRecords(cfg *config.Config) (store.RecordStore, func(), error) {
	if cfg.Store.Path == "" {
		return nil, func() {}, nil
	}
	st, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening record store: %w", err)
	}
	return st, func() { st.Close() }, nil
}

func searchOptions(cfg *config.Config) search.Options {
	return search.Options{
		VectorWeight:   cfg.Search.VectorWeight,
		TextWeight:     cfg.Search.TextWeight,
		MinVectorScore: cfg.Search.MinVectorScore,
		LexicalScale:   cfg.Search.LexicalScale,
	}
}
