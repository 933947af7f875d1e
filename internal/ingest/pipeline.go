// Package ingest wires chunking, embedding and indexing into the document
// write path.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/reglens/reglens/internal/chunker"
	"github.com/reglens/reglens/internal/embeddings"
	"github.com/reglens/reglens/internal/index"
)

// DocumentMetadata describes the source document being ingested.
type DocumentMetadata struct {
	// DocumentID identifies the source document. When empty it is derived
	// from SourceLocation.
	DocumentID     string
	Title          string
	Type           string
	SourceLocation string
	Extra          map[string]string
}

// Result is the completion shape of one document's ingestion: N chunks
// indexed, M failed, never a bare error for per-item write failures.
type Result struct {
	DocumentID string
	Chunks     int
	Indexed    int
	Failed     []index.ItemError
	Duration   time.Duration
}

// Pipeline sequences chunk -> embed -> upsert for one document at a time.
// Independent documents may be ingested concurrently by independent callers.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
	idx      index.Index
}

// NewPipeline creates a Pipeline from explicitly constructed dependencies.
func NewPipeline(c *chunker.Chunker, embedder embeddings.Embedder, idx index.Index) *Pipeline {
	return &Pipeline{chunker: c, embedder: embedder, idx: idx}
}

// IngestDocument chunks text, embeds every chunk and bulk-upserts the
// results. An embedding failure aborts the document (it is left un-indexed
// rather than indexed without vectors); individual upsert failures are
// reported in the Result without aborting the rest. Empty text is a
// zero-chunk success.
func (p *Pipeline) IngestDocument(ctx context.Context, text string, meta DocumentMetadata) (*Result, error) {
	start := time.Now()

	docID := meta.DocumentID
	if docID == "" {
		docID = DeriveDocumentID(meta.SourceLocation)
	}
	result := &Result{DocumentID: docID}

	chunks := p.chunker.Chunk(text, meta.Extra)
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Vectors come back in chunk order; a failure anywhere fails the whole
	// document.
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding document %s: %w", docID, err)
	}
	if len(vectors) != len(chunks) {
		return nil, &embeddings.ServiceError{
			Provider: p.embedder.Name(),
			Err:      fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}

	now := time.Now().UTC()
	docs := make([]index.IndexedDocument, len(chunks))
	for i, c := range chunks {
		docs[i] = index.IndexedDocument{
			ChunkID:        c.ID,
			Embedding:      vectors[i],
			Text:           c.Text,
			DocumentID:     docID,
			DocumentTitle:  meta.Title,
			DocumentType:   meta.Type,
			SourceLocation: meta.SourceLocation,
			CreatedAt:      now,
			Metadata:       c.Metadata,
		}
	}

	upsert, err := p.idx.Upsert(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("indexing document %s: %w", docID, err)
	}

	result.Indexed = upsert.Indexed
	result.Failed = upsert.Failed
	result.Duration = time.Since(start)
	return result, nil
}

// DeriveDocumentID builds a stable document id from a source location.
func DeriveDocumentID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return "doc_" + hex.EncodeToString(sum[:])[:16]
}
