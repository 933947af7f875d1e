// Package search implements hybrid retrieval: a vector similarity query and
// a lexical query issued against the same index, fused into a single ranked
// list by weighted score normalization.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reglens/reglens/internal/embeddings"
	"github.com/reglens/reglens/internal/index"
)

// ScoredDocument is an ephemeral per-query result. Never persisted.
type ScoredDocument struct {
	Document      index.IndexedDocument
	VectorScore   float64
	TextScore     float64
	CombinedScore float64
}

// Options tunes score fusion.
type Options struct {
	// VectorWeight and TextWeight weigh the normalized modality scores.
	VectorWeight float64
	TextWeight   float64
	// MinVectorScore is the similarity floor applied to the kNN half.
	MinVectorScore float64
	// LexicalScale divides raw lexical scores before clamping to [0,1]. It
	// compensates for the lexical engine's unbounded relevance scale and is
	// engine-specific.
	LexicalScale float64
	// DocumentType, when set, filters the lexical half by document type.
	DocumentType string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		VectorWeight:   0.7,
		TextWeight:     0.3,
		MinVectorScore: 0.5,
		LexicalScale:   10.0,
	}
}

// Searcher issues hybrid queries against an index.
type Searcher struct {
	embedder embeddings.Embedder
	idx      index.Index
	opts     Options
}

// NewSearcher creates a Searcher with the given fusion options.
func NewSearcher(embedder embeddings.Embedder, idx index.Index, opts Options) *Searcher {
	if opts.LexicalScale <= 0 {
		opts.LexicalScale = 10.0
	}
	return &Searcher{embedder: embedder, idx: idx, opts: opts}
}

// Search runs the vector and lexical halves concurrently, fuses the results
// and returns at most size documents ordered by combined score. Either half's
// failure fails the whole call; the caller owns retry policy.
func (s *Searcher) Search(ctx context.Context, query string, size int) ([]ScoredDocument, error) {
	return s.SearchByType(ctx, query, size, s.opts.DocumentType)
}

// SearchByType is Search with a per-call document-type filter applied to the
// lexical half.
func (s *Searcher) SearchByType(ctx context.Context, query string, size int, docType string) ([]ScoredDocument, error) {
	if size <= 0 {
		size = 10
	}

	var (
		wg          sync.WaitGroup
		vectorHits  []index.Hit
		lexicalHits []index.Hit
		vectorErr   error
		lexicalErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vectorHits, vectorErr = s.VectorSearch(ctx, query, size)
	}()
	go func() {
		defer wg.Done()
		lexicalHits, lexicalErr = s.idx.LexicalSearch(ctx, query, size, docType)
	}()
	wg.Wait()

	if vectorErr != nil {
		return nil, fmt.Errorf("vector search: %w", vectorErr)
	}
	if lexicalErr != nil {
		return nil, fmt.Errorf("lexical search: %w", lexicalErr)
	}

	fused := s.fuse(vectorHits, lexicalHits)
	if len(fused) > size {
		fused = fused[:size]
	}
	return fused, nil
}

// VectorSearch embeds the query and runs the kNN half on its own.
func (s *Searcher) VectorSearch(ctx context.Context, query string, size int) ([]index.Hit, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, &embeddings.ServiceError{Provider: s.embedder.Name(), Err: fmt.Errorf("no vector for query")}
	}
	return s.idx.KNNSearch(ctx, vecs[0], size, s.opts.MinVectorScore)
}

// TextSearch runs the lexical half on its own.
func (s *Searcher) TextSearch(ctx context.Context, query string, size int) ([]index.Hit, error) {
	return s.idx.LexicalSearch(ctx, query, size, s.opts.DocumentType)
}

// fuse unions both result sets by document id. A document present in only
// one set gets 0.0 for the missing modality. Order is vector-result order
// first, then lexical-only documents, so the stable sort breaks combined-
// score ties in favor of the vector ranking.
func (s *Searcher) fuse(vectorHits, lexicalHits []index.Hit) []ScoredDocument {
	byID := make(map[string]*ScoredDocument)
	var ordered []*ScoredDocument

	for _, hit := range vectorHits {
		if existing, ok := byID[hit.Document.DocumentID]; ok {
			// Multiple chunks of one document collapse into a single entry
			// carrying the best chunk's score.
			if hit.Score > existing.VectorScore {
				existing.VectorScore = hit.Score
			}
			continue
		}
		doc := &ScoredDocument{Document: hit.Document, VectorScore: hit.Score}
		byID[hit.Document.DocumentID] = doc
		ordered = append(ordered, doc)
	}

	for _, hit := range lexicalHits {
		if existing, ok := byID[hit.Document.DocumentID]; ok {
			if hit.Score > existing.TextScore {
				existing.TextScore = hit.Score
			}
			continue
		}
		doc := &ScoredDocument{Document: hit.Document, TextScore: hit.Score}
		byID[hit.Document.DocumentID] = doc
		ordered = append(ordered, doc)
	}

	for _, doc := range ordered {
		normalizedVector := clamp01(doc.VectorScore)
		normalizedText := clamp01(doc.TextScore / s.opts.LexicalScale)
		doc.CombinedScore = s.opts.VectorWeight*normalizedVector + s.opts.TextWeight*normalizedText
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CombinedScore > ordered[j].CombinedScore
	})

	results := make([]ScoredDocument, len(ordered))
	for i, doc := range ordered {
		results[i] = *doc
	}
	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
