package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// IndexBackend identifies the search index implementation.
type IndexBackend string

const (
	IndexMemory   IndexBackend = "memory"
	IndexPostgres IndexBackend = "postgres"
)

// Config is the top-level reglens configuration, corresponding to .reglens.yml.
type Config struct {
	Provider            ProviderType     `yaml:"provider" koanf:"provider"`
	Model               string           `yaml:"model" koanf:"model"`
	EmbeddingProvider   ProviderType     `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string           `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int              `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	Chunking            ChunkingConfig   `yaml:"chunking" koanf:"chunking"`
	Index               IndexConfig      `yaml:"index" koanf:"index"`
	Search              SearchConfig     `yaml:"search" koanf:"search"`
	Extraction          ExtractionConfig `yaml:"extraction" koanf:"extraction"`
	Store               StoreConfig      `yaml:"store" koanf:"store"`
}

// ChunkingConfig controls how documents are split before embedding.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// IndexConfig selects and configures the search index backend.
type IndexConfig struct {
	Backend IndexBackend `yaml:"backend" koanf:"backend"`
	// PostgresURL is the connection string for the postgres backend.
	PostgresURL string `yaml:"postgres_url" koanf:"postgres_url"`
	// DataDir is where the memory backend persists its snapshot.
	DataDir string `yaml:"data_dir" koanf:"data_dir"`
}

// SearchConfig holds hybrid search tuning parameters.
type SearchConfig struct {
	VectorWeight   float64 `yaml:"vector_weight" koanf:"vector_weight"`
	TextWeight     float64 `yaml:"text_weight" koanf:"text_weight"`
	MinVectorScore float64 `yaml:"min_vector_score" koanf:"min_vector_score"`
	// LexicalScale divides raw lexical-engine scores before clamping to [0,1].
	// The right value depends on the engine's scoring scale and is not
	// portable across backends.
	LexicalScale float64 `yaml:"lexical_scale" koanf:"lexical_scale"`
	DefaultSize  int     `yaml:"default_size" koanf:"default_size"`
}

// ExtractionConfig bounds prompt construction and batching for LLM extraction.
type ExtractionConfig struct {
	MaxAnalysisDocs  int     `yaml:"max_analysis_docs" koanf:"max_analysis_docs"`
	AnalysisDocChars int     `yaml:"analysis_doc_chars" koanf:"analysis_doc_chars"`
	MaxDraftingDocs  int     `yaml:"max_drafting_docs" koanf:"max_drafting_docs"`
	DraftingDocChars int     `yaml:"drafting_doc_chars" koanf:"drafting_doc_chars"`
	DraftBatchSize   int     `yaml:"draft_batch_size" koanf:"draft_batch_size"`
	MaxTokens        int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature      float64 `yaml:"temperature" koanf:"temperature"`
}

// StoreConfig configures the extracted-record store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `yaml:"path" koanf:"path"`
}
