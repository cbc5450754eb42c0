// Package embeddingtest provides a deterministic offline embedder for tests.
package embeddingtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/minio/highwayhash"
)

const defaultDim = 256

var hashKey = make([]byte, 32)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "by": true, "do": true,
	"does": true, "for": true, "how": true, "i": true, "in": true, "is": true,
	"it": true, "much": true, "my": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "what": true, "when": true, "where": true,
	"which": true, "with": true, "you": true, "your": true,
}

// Hash embeds text as a normalized set of hashed lower-case words. Stopwords
// are dropped and each word counts once, so texts sharing content words get
// similar vectors.
type Hash struct {
	Dim int
	// Err, when set, is returned by every call.
	Err error

	calls atomic.Int64
}

// Calls reports how many times the embedder was invoked.
func (h *Hash) Calls() int { return int(h.calls.Load()) }

func (h *Hash) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	h.calls.Add(1)
	if h.Err != nil {
		return nil, h.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *Hash) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	h.calls.Add(1)
	if h.Err != nil {
		return nil, h.Err
	}
	if text == "" {
		return nil, errors.New("empty text")
	}
	return h.embed(text), nil
}

func (h *Hash) embed(text string) []float32 {
	dim := h.Dim
	if dim <= 1 {
		dim = defaultDim
	}
	v := make([]float32, dim)
	// the last dimension is a constant so no vector is all zeros
	v[dim-1] = 0.1

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		sum := highwayhash.Sum64([]byte(w), hashKey)
		v[sum%uint64(dim-1)] = 1
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
