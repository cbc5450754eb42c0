package index

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/minio/highwayhash"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"telecom-assistant/internal/embedding"
	"telecom-assistant/internal/models"
	"telecom-assistant/internal/parser"
)

// fixed key so fingerprints are stable across runs
var fingerprintKey = []byte("telecom-assistant-index-key-0001")

// Builder turns the data folder into an Index.
type Builder struct {
	DataDir    string
	Extensions []string
	Chunker    *parser.Chunker
	Embedder   embeddings.Embedder
	Store      Store
	// Model names the embedding model; it is part of the fingerprint so
	// switching models never reuses stale vectors.
	Model string
}

// Build loads, chunks and embeds the documents. When the store already holds
// vectors for the same chunks and model they are reused without embedding.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	start := time.Now()

	docs, err := parser.LoadDirectory(b.DataDir, b.Extensions)
	if err != nil {
		return nil, err
	}
	chunks := b.Chunker.SplitAll(docs)
	if len(chunks) == 0 {
		log.Warn().Str("dir", b.DataDir).Msg("No content to index, questions will go to web search")
		return &Index{store: b.Store, embedder: b.Embedder}, nil
	}

	fp, err := Fingerprint(b.Model, chunks)
	if err != nil {
		return nil, err
	}

	cached, err := b.Store.Has(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("check index cache: %w", err)
	}
	if cached && b.Store.Count() == len(chunks) {
		log.Info().
			Int("documents", len(docs)).
			Int("chunks", len(chunks)).
			Str("fingerprint", fp).
			Msg("Reusing stored embeddings")
		return &Index{store: b.Store, embedder: b.Embedder, chunks: chunks, fingerprint: fp}, nil
	}

	items, err := embedding.EmbedChunks(ctx, b.Embedder, chunks)
	if err != nil {
		return nil, err
	}
	if err := b.Store.Replace(ctx, fp, items); err != nil {
		return nil, fmt.Errorf("store embeddings: %w", err)
	}

	log.Info().
		Int("documents", len(docs)).
		Int("chunks", len(chunks)).
		Str("fingerprint", fp).
		Dur("took", time.Since(start)).
		Msg("Index built")
	return &Index{store: b.Store, embedder: b.Embedder, chunks: chunks, fingerprint: fp}, nil
}

// Fingerprint hashes the model name and every chunk id and text.
func Fingerprint(model string, chunks []models.Chunk) (string, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h.Write([]byte(model))
	h.Write([]byte{0})
	for _, c := range chunks {
		h.Write([]byte(c.ID))
		h.Write([]byte{0})
		h.Write([]byte(c.Section))
		h.Write([]byte{0})
		h.Write([]byte(c.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
