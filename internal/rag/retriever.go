package rag

import (
	"context"
	"errors"

	"telecom-assistant/internal/index"
	"telecom-assistant/internal/models"
)

var ErrIndexUnavailable = errors.New("document index unavailable")

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]models.SearchResult, error)
}

// LazyRetriever searches the process-wide index, building it on first use.
type LazyRetriever struct {
	Index *index.Lazy
}

func (r LazyRetriever) Retrieve(ctx context.Context, question string, k int) ([]models.SearchResult, error) {
	idx, err := r.Index.Get(ctx)
	if err != nil {
		return nil, errors.Join(ErrIndexUnavailable, err)
	}
	return idx.Search(ctx, question, k)
}
