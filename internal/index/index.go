// Package index defines the boundary to the search engine that stores
// embedded document chunks and serves both vector and lexical queries over
// the same corpus.
package index

import (
	"context"
	"fmt"
	"time"
)

// Document types stored in the corpus.
const (
	DocTypeRegulatory     = "regulatory_document"
	DocTypeInternalPolicy = "internal_policy"
)

// IndexedDocument is one stored chunk with its embedding and source fields.
// Documents are keyed by ChunkID: upserting an existing ChunkID overwrites.
type IndexedDocument struct {
	ChunkID        string
	Embedding      []float32
	Text           string
	DocumentID     string
	DocumentTitle  string
	DocumentType   string
	SourceLocation string
	CreatedAt      time.Time
	Metadata       map[string]string
}

// Hit is a single search result with its engine-native score. Vector hits
// carry a cosine-like similarity; lexical hits carry the engine's unbounded
// relevance score.
type Hit struct {
	Document IndexedDocument
	Score    float64
}

// ItemError reports a single failed document inside a bulk write.
type ItemError struct {
	ChunkID string
	Err     error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.ChunkID, e.Err)
}

// UpsertResult is the normal completion shape of a bulk write: N succeeded,
// M failed. Per-item failures never abort the rest of the batch.
type UpsertResult struct {
	Indexed int
	Failed  []ItemError
}

// Index is the external search engine abstraction. Implementations do not
// guarantee read-your-writes consistency; eventual visibility is acceptable.
type Index interface {
	// Upsert writes documents keyed by ChunkID, overwriting existing entries.
	Upsert(ctx context.Context, docs []IndexedDocument) (*UpsertResult, error)

	// KNNSearch returns up to k nearest documents by embedding similarity,
	// dropping hits below minScore.
	KNNSearch(ctx context.Context, vector []float32, k int, minScore float64) ([]Hit, error)

	// LexicalSearch returns up to k documents by keyword relevance over the
	// text and title fields. docType, when non-empty, filters by document
	// type.
	LexicalSearch(ctx context.Context, query string, k int, docType string) ([]Hit, error)
}
