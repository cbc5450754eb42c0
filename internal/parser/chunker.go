package parser

import (
	"strings"

	"telecom-assistant/internal/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Chunker splits documents into overlapping, section-aware chunks.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker falls back to the default size and overlap for non-positive values.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultChunkOverlap
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// SplitAll chunks every document, keeping document order.
func (c *Chunker) SplitAll(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.Split(doc)...)
	}
	return chunks
}

// Split chunks a single document. Windows run over the whole normalized page
// and carry the heading open at their start as section. Chunk ids are stable
// for identical input.
func (c *Chunker) Split(doc models.Document) []models.Chunk {
	var (
		chunks []models.Chunk
		title  string
	)
	for _, page := range doc.Pages {
		var sections []Section
		sections, title = SplitSections(page.Text, title)

		for i, piece := range chunkContent(pageText(sections), c.Size, c.Overlap) {
			ordinal := i + 1
			chunks = append(chunks, models.Chunk{
				ID:         models.ChunkKey(doc.ID, page.Number, ordinal),
				DocumentID: doc.ID,
				PageNumber: page.Number,
				Section:    sectionAt(sections, piece.offset),
				Offset:     piece.offset,
				ChunkID:    ordinal,
				Content:    piece.text,
			})
		}
	}
	return chunks
}

func pageText(sections []Section) string {
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}

// sectionAt returns the title of the last section starting at or before offset.
func sectionAt(sections []Section, offset int) string {
	title := ""
	for _, s := range sections {
		if s.Offset > offset {
			break
		}
		title = s.Title
	}
	return title
}

type piece struct {
	text   string
	offset int
}

// chunkContent cuts content into windows of at most maxChars characters, each
// starting overlapChars before the previous one ended. Windows end on a space,
// newline or period when one is found in their last tenth.
func chunkContent(content string, maxChars, overlapChars int) []piece {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	runes := []rune(content)
	contentLen := len(runes)
	if contentLen <= maxChars {
		return []piece{{text: strings.TrimSpace(content)}}
	}

	var pieces []piece
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			pieces = append(pieces, piece{text: text, offset: start})
		}
		if end == contentLen {
			break
		}

		next := end - overlapChars
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return pieces
}
