package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reglens/reglens/internal/chunker"
	"github.com/reglens/reglens/internal/embeddings"
	"github.com/reglens/reglens/internal/index"
)

type fakeEmbedder struct {
	err   error
	short bool // return one vector fewer than requested
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short && n > 0 {
		n--
	}
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Name() string    { return "fake" }

type fakeIndex struct {
	upserted []index.IndexedDocument
	failEach bool
	err      error
}

func (f *fakeIndex) Upsert(_ context.Context, docs []index.IndexedDocument) (*index.UpsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := &index.UpsertResult{}
	for _, d := range docs {
		if f.failEach {
			result.Failed = append(result.Failed, index.ItemError{ChunkID: d.ChunkID, Err: errors.New("write rejected")})
			continue
		}
		f.upserted = append(f.upserted, d)
		result.Indexed++
	}
	return result, nil
}

func (f *fakeIndex) KNNSearch(_ context.Context, _ []float32, _ int, _ float64) ([]index.Hit, error) {
	return nil, nil
}

func (f *fakeIndex) LexicalSearch(_ context.Context, _ string, _ int, _ string) ([]index.Hit, error) {
	return nil, nil
}

func newTestPipeline(e *fakeEmbedder, idx *fakeIndex) *Pipeline {
	return NewPipeline(chunker.New(100, 20), e, idx)
}

const sampleText = "Controllers must document processing activities. Records are kept for five years. " +
	"Supervisory authorities may request the records at any time. Breaches must be notified without undue delay."

func TestIngestDocument(t *testing.T) {
	idx := &fakeIndex{}
	p := newTestPipeline(&fakeEmbedder{}, idx)

	result, err := p.IngestDocument(context.Background(), sampleText, DocumentMetadata{
		DocumentID:     "gdpr-30",
		Title:          "GDPR Article 30",
		Type:           index.DocTypeRegulatory,
		SourceLocation: "regs/gdpr/art30.txt",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DocumentID != "gdpr-30" {
		t.Errorf("DocumentID = %q, want caller-provided id", result.DocumentID)
	}
	if result.Chunks == 0 || result.Indexed != result.Chunks {
		t.Errorf("expected all chunks indexed, got %d/%d", result.Indexed, result.Chunks)
	}
	if len(result.Failed) != 0 {
		t.Errorf("unexpected failures: %+v", result.Failed)
	}

	for _, doc := range idx.upserted {
		if doc.DocumentID != "gdpr-30" || doc.DocumentType != index.DocTypeRegulatory {
			t.Errorf("document fields not carried: %+v", doc)
		}
		if len(doc.Embedding) == 0 {
			t.Error("chunk indexed without embedding")
		}
		if doc.CreatedAt.IsZero() {
			t.Error("CreatedAt not stamped")
		}
	}
}

func TestIngestDocument_EmptyText(t *testing.T) {
	e := &fakeEmbedder{}
	p := newTestPipeline(e, &fakeIndex{})

	result, err := p.IngestDocument(context.Background(), "   \n ", DocumentMetadata{SourceLocation: "empty.txt"})
	if err != nil {
		t.Fatalf("empty text must be a zero-chunk success: %v", err)
	}
	if result.Chunks != 0 || result.Indexed != 0 {
		t.Errorf("expected zero-valued result, got %+v", result)
	}
	if e.calls != 0 {
		t.Errorf("embedder called %d times for empty input", e.calls)
	}
}

func TestIngestDocument_EmbeddingFailureAborts(t *testing.T) {
	svcErr := &embeddings.ServiceError{Provider: "fake", Err: errors.New("quota exceeded")}
	idx := &fakeIndex{}
	p := newTestPipeline(&fakeEmbedder{err: svcErr}, idx)

	_, err := p.IngestDocument(context.Background(), sampleText, DocumentMetadata{SourceLocation: "doc.txt"})
	if err == nil {
		t.Fatal("expected error")
	}
	var target *embeddings.ServiceError
	if !errors.As(err, &target) {
		t.Errorf("expected ServiceError in chain, got %v", err)
	}
	if len(idx.upserted) != 0 {
		t.Error("document partially indexed after embedding failure")
	}
}

func TestIngestDocument_VectorCountMismatch(t *testing.T) {
	p := newTestPipeline(&fakeEmbedder{short: true}, &fakeIndex{})

	_, err := p.IngestDocument(context.Background(), sampleText, DocumentMetadata{SourceLocation: "doc.txt"})
	if err == nil {
		t.Fatal("expected error for short embedding response")
	}
	var target *embeddings.ServiceError
	if !errors.As(err, &target) {
		t.Errorf("expected ServiceError, got %v", err)
	}
}

func TestIngestDocument_PerItemFailuresReported(t *testing.T) {
	p := newTestPipeline(&fakeEmbedder{}, &fakeIndex{failEach: true})

	result, err := p.IngestDocument(context.Background(), sampleText, DocumentMetadata{SourceLocation: "doc.txt"})
	if err != nil {
		t.Fatalf("per-item failures must not abort the document: %v", err)
	}
	if result.Indexed != 0 {
		t.Errorf("Indexed = %d, want 0", result.Indexed)
	}
	if len(result.Failed) != result.Chunks {
		t.Errorf("expected %d per-item failures, got %d", result.Chunks, len(result.Failed))
	}
}

func TestDeriveDocumentID(t *testing.T) {
	id := DeriveDocumentID("policies/hr/leave.txt")
	if !strings.HasPrefix(id, "doc_") || len(id) != len("doc_")+16 {
		t.Errorf("unexpected id shape: %q", id)
	}
	if id != DeriveDocumentID("policies/hr/leave.txt") {
		t.Error("id not deterministic")
	}
	if id == DeriveDocumentID("policies/hr/other.txt") {
		t.Error("distinct sources collided")
	}
}

func TestIngestDocument_DerivesIDFromSource(t *testing.T) {
	p := newTestPipeline(&fakeEmbedder{}, &fakeIndex{})

	result, err := p.IngestDocument(context.Background(), sampleText, DocumentMetadata{SourceLocation: "regs/a.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DocumentID != DeriveDocumentID("regs/a.txt") {
		t.Errorf("DocumentID = %q, want derived id", result.DocumentID)
	}
}
