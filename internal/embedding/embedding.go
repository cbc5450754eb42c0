package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

var (
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrVectorCount     = errors.New("embedder returned wrong number of vectors")
	ErrDimension       = errors.New("embedding dimension mismatch")
)

// New creates the embedder named by cfg.Provider.
func New(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Loaded embedding config")

	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg)
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "googleai", "gemini":
		return NewGoogleEmbedder(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// NewOllamaEmbedder embeds through a local ollama server.
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing ollama: %w", err)
	}
	return newEmbedder(llm, cfg)
}

// NewOpenAIEmbedder embeds through any OpenAI compatible endpoint.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing openai: %w", err)
	}
	return newEmbedder(llm, cfg)
}

// NewGoogleEmbedder embeds with the Gemini embedding models.
func NewGoogleEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []googleai.Option{googleai.WithAPIKey(cfg.Key)}
	if cfg.Model != "" {
		opts = append(opts, googleai.WithDefaultEmbeddingModel(cfg.Model))
	}
	llm, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing googleai: %w", err)
	}
	return newEmbedder(llm, cfg)
}

func newEmbedder(client embeddings.EmbedderClient, cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []embeddings.Option{}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}
	return embedder, nil
}

// Text is what gets embedded for a chunk: its section title followed by its content.
func Text(chunk models.Chunk) string {
	if chunk.Section == "" || strings.HasPrefix(chunk.Content, chunk.Section) {
		return chunk.Content
	}
	return chunk.Section + "\n" + chunk.Content
}

// EmbedChunks embeds all chunks in one batch and pairs every chunk with its vector.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = Text(chunk)
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d for %d chunks", ErrVectorCount, len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	result := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: chunk %s has %d, want %d", ErrDimension, chunk.ID, len(vectors[i]), dim)
		}
		result[i] = models.ChunkEmbedding{Chunk: chunk, Embedding: vectors[i]}
	}

	log.Debug().Int("chunks", len(result)).Int("dimension", dim).Msg("Embedded chunks")
	return result, nil
}
