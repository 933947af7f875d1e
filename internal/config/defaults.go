package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderAnthropic,
		Model:               "claude-sonnet-4-5-20250929",
		EmbeddingProvider:   ProviderOpenAI,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Index: IndexConfig{
			Backend: IndexMemory,
			DataDir: ".reglens",
		},
		Search: SearchConfig{
			VectorWeight:   0.7,
			TextWeight:     0.3,
			MinVectorScore: 0.5,
			LexicalScale:   10.0,
			DefaultSize:    10,
		},
		Extraction: ExtractionConfig{
			MaxAnalysisDocs:  5,
			AnalysisDocChars: 2000,
			MaxDraftingDocs:  3,
			DraftingDocChars: 1500,
			DraftBatchSize:   3,
			MaxTokens:        4000,
			Temperature:      0.1,
		},
		Store: StoreConfig{
			Path: "",
		},
	}
}
