// Package memory provides an in-process Index backed by chromem-go for
// vector search and a token-frequency scorer for lexical search. It is the
// reference backend for local runs and tests; production deployments use the
// postgres backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/reglens/reglens/internal/index"
)

const (
	collectionName = "chunks"
	snapshotFile   = "index.gob.gz"
	payloadFile    = "documents.json"
)

// Store implements index.Index entirely in process.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection

	mu   sync.RWMutex
	docs map[string]index.IndexedDocument
}

// New creates an empty in-memory store.
func New() (*Store, error) {
	db := chromem.NewDB()

	// Embeddings are always supplied by the caller, so the collection's
	// embedding func is never invoked.
	col, err := db.GetOrCreateCollection(collectionName, nil, func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("embedding func should not be called: embeddings are precomputed")
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		docs:       make(map[string]index.IndexedDocument),
	}, nil
}

// Upsert writes documents keyed by ChunkID. Documents with no ChunkID or no
// embedding are reported per item; the rest of the batch still lands.
func (s *Store) Upsert(ctx context.Context, docs []index.IndexedDocument) (*index.UpsertResult, error) {
	result := &index.UpsertResult{}
	if len(docs) == 0 {
		return result, nil
	}

	var valid []chromem.Document
	var accepted []index.IndexedDocument
	for _, doc := range docs {
		if doc.ChunkID == "" {
			result.Failed = append(result.Failed, index.ItemError{ChunkID: doc.ChunkID, Err: fmt.Errorf("missing chunk id")})
			continue
		}
		if len(doc.Embedding) == 0 {
			result.Failed = append(result.Failed, index.ItemError{ChunkID: doc.ChunkID, Err: fmt.Errorf("missing embedding")})
			continue
		}
		valid = append(valid, chromem.Document{
			ID:        doc.ChunkID,
			Content:   doc.Text,
			Embedding: doc.Embedding,
			Metadata: map[string]string{
				"document_id":   doc.DocumentID,
				"document_type": doc.DocumentType,
			},
		})
		accepted = append(accepted, doc)
	}

	if len(valid) > 0 {
		if err := s.collection.AddDocuments(ctx, valid, 1); err != nil {
			return nil, fmt.Errorf("add documents: %w", err)
		}
	}

	s.mu.Lock()
	for _, doc := range accepted {
		s.docs[doc.ChunkID] = doc
	}
	s.mu.Unlock()

	result.Indexed = len(accepted)
	return result, nil
}

func (s *Store) KNNSearch(ctx context.Context, vector []float32, k int, minScore float64) ([]index.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	// chromem requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]index.Hit, 0, len(results))
	for _, r := range results {
		if float64(r.Similarity) < minScore {
			continue
		}
		doc, ok := s.docs[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, index.Hit{Document: doc, Score: float64(r.Similarity)})
	}
	return hits, nil
}

func (s *Store) LexicalSearch(ctx context.Context, query string, k int, docType string) ([]index.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	var hits []index.Hit
	for _, doc := range s.docs {
		if docType != "" && doc.DocumentType != docType {
			continue
		}
		if score := lexicalScore(doc, terms); score > 0 {
			hits = append(hits, index.Hit{Document: doc, Score: score})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Persist saves the vector collection and document payloads under dir.
func (s *Store) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	if err := s.db.ExportToFile(filepath.Join(dir, snapshotFile), true, ""); err != nil {
		return fmt.Errorf("export collection: %w", err)
	}

	s.mu.RLock()
	data, err := json.Marshal(s.docs)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, payloadFile), data, 0o644); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}
	return nil
}

// Load restores a store previously saved with Persist.
func (s *Store) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(filepath.Join(dir, snapshotFile), ""); err != nil {
		return fmt.Errorf("import collection: %w", err)
	}

	// Re-acquire the collection reference after import.
	col := s.db.GetCollection(collectionName, nil)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col

	data, err := os.ReadFile(filepath.Join(dir, payloadFile))
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}

	docs := make(map[string]index.IndexedDocument)
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("unmarshal documents: %w", err)
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
