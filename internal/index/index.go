package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"telecom-assistant/internal/models"
)

var ErrEmptyQuery = errors.New("empty query")

// Store is a vector backend holding the embedded chunks of one document set.
type Store interface {
	// Has reports whether the set identified by fingerprint is already stored
	// and makes it the one Search reads from.
	Has(ctx context.Context, fingerprint string) (bool, error)
	Replace(ctx context.Context, fingerprint string, items []models.ChunkEmbedding) error
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)
	Count() int
}

// Index is the read-only searchable view over a built document set.
type Index struct {
	store       Store
	embedder    embeddings.Embedder
	chunks      []models.Chunk
	fingerprint string
}

// Search embeds query and returns up to k chunks, most similar first.
func (i *Index) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if i.Empty() || k <= 0 {
		return nil, nil
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := i.store.Search(ctx, vector, min(k, len(i.chunks)))
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int { return len(i.chunks) }

func (i *Index) Empty() bool { return len(i.chunks) == 0 }

// Chunks returns a copy of the indexed chunks in document order.
func (i *Index) Chunks() []models.Chunk {
	out := make([]models.Chunk, len(i.chunks))
	copy(out, i.chunks)
	return out
}

func (i *Index) Fingerprint() string { return i.fingerprint }
