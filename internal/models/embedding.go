package models

import "fmt"

// Document is a source file loaded from the data directory.
type Document struct {
	ID    string
	Path  string
	Pages []Page
}

// Page holds the extracted text of one page, sheet or slide.
type Page struct {
	Number int
	Text   string
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
	Section    string `json:"section,omitempty"`
	Offset     int    `json:"offset"`
	ChunkID    int    `json:"chunk_id"`
	Content    string `json:"content"`
}

// ChunkKey builds the deterministic id of a chunk.
func ChunkKey(documentID string, pageNumber, chunkID int) string {
	return fmt.Sprintf("%s#p%d-c%d", documentID, pageNumber, chunkID)
}

// ChunkEmbedding pairs a chunk with its embedding vector.
type ChunkEmbedding struct {
	Chunk     Chunk
	Embedding []float32
}

// SearchResult is a chunk returned by a nearest-neighbor query.
type SearchResult struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float32 `json:"similarity"`
}

// WebResult is a single hit returned by the web search API.
type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}
