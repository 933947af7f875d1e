package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
//
// Embed returns one vector per input text, in input order. A failure on any
// item fails the whole batch; callers that need per-item recovery retry
// item by item. No retries happen internally.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// ServiceError reports a failed or empty response from an embedding service.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service %s: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
