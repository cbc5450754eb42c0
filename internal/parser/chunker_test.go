package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-assistant/internal/models"
)

func TestChunkContent_Short(t *testing.T) {
	pieces := chunkContent("  hello world  ", 100, 10)
	require.Len(t, pieces, 1)
	assert.Equal(t, "hello world", pieces[0].text)
	assert.Equal(t, 0, pieces[0].offset)
}

func TestChunkContent_Empty(t *testing.T) {
	assert.Nil(t, chunkContent("", 100, 10))
	assert.Nil(t, chunkContent("   ", 100, 10))
	assert.Nil(t, chunkContent("abc", 0, 10))
}

func TestChunkContent_OverlapAndCoverage(t *testing.T) {
	content := strings.Repeat("abcdefghij", 25) // 250 chars, no break points
	pieces := chunkContent(content, 100, 20)
	require.Len(t, pieces, 3)

	assert.Equal(t, 0, pieces[0].offset)
	assert.Equal(t, 80, pieces[1].offset)
	assert.Equal(t, 160, pieces[2].offset)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.text), 100)
	}
	assert.Equal(t, content[pieces[2].offset:], pieces[2].text)
}

func TestChunkContent_BreaksOnSpace(t *testing.T) {
	content := strings.Repeat("word ", 50)
	pieces := chunkContent(content, 42, 5)
	require.NotEmpty(t, pieces)
	for _, p := range pieces[:len(pieces)-1] {
		assert.True(t, strings.HasSuffix(p.text, "word"), p.text)
	}
}

func TestChunkContent_Multibyte(t *testing.T) {
	content := strings.Repeat("é", 150)
	pieces := chunkContent(content, 100, 10)
	require.Len(t, pieces, 2)
	assert.Equal(t, 100, len([]rune(pieces[0].text)))
	assert.Equal(t, 90, pieces[1].offset)
}

func TestChunker_Split(t *testing.T) {
	doc := models.Document{
		ID: "guide.pdf",
		Pages: []models.Page{
			{Number: 1, Text: "DATA PACKAGES\nThe unlimited data plan costs $20/month.\n\n2.1 Router Setup\nPlug in the router."},
			{Number: 2, Text: "Hold reset for 10 seconds."},
		},
	}

	chunks := NewChunker(1000, 200).Split(doc)
	require.Len(t, chunks, 2)

	assert.Equal(t, "guide.pdf#p1-c1", chunks[0].ID)
	assert.Equal(t, "DATA PACKAGES", chunks[0].Section)
	assert.Equal(t, "DATA PACKAGES\nThe unlimited data plan costs $20/month.\n2.1 Router Setup\nPlug in the router.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 1, chunks[0].ChunkID)

	// the open heading carries over to the next page
	assert.Equal(t, "guide.pdf#p2-c1", chunks[1].ID)
	assert.Equal(t, "2.1 Router Setup", chunks[1].Section)
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Equal(t, "guide.pdf", chunks[1].DocumentID)
}

func TestChunker_WindowsOverlapAcrossHeadings(t *testing.T) {
	doc := models.Document{
		ID: "guide.pdf",
		Pages: []models.Page{{Number: 1, Text: "DATA PACKAGES\nThe unlimited data plan costs $20/month and includes free calls.\n\n2.1 Router Setup\nPlug in the router and wait for the green light."}},
	}

	chunks := NewChunker(60, 15).Split(doc)
	require.Len(t, chunks, 3)

	assert.Equal(t, []int{0, 43, 86}, []int{chunks[0].Offset, chunks[1].Offset, chunks[2].Offset})
	assert.Equal(t, "DATA PACKAGES", chunks[0].Section)
	assert.Equal(t, "DATA PACKAGES", chunks[1].Section)
	assert.Equal(t, "2.1 Router Setup", chunks[2].Section)

	// a window spans the heading instead of stopping at it
	assert.Contains(t, chunks[1].Content, "free calls.\n2.1 Router Setup")
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Offset + len([]rune(chunks[i-1].Content))
		assert.Less(t, chunks[i].Offset, prevEnd, "chunk %d should overlap the previous one", i)
	}
}

func TestChunker_QuantityLineKeepsPlanWithPrice(t *testing.T) {
	doc := models.Document{
		ID:    "plans.txt",
		Pages: []models.Page{{Number: 1, Text: "Unlimited data plan details:\n30 Days validity\nPrice is $20/month."}},
	}

	chunks := NewChunker(1000, 200).Split(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Unlimited data plan details:\n30 Days validity\nPrice is $20/month.", chunks[0].Content)
	assert.Empty(t, chunks[0].Section)
}

func TestChunker_Deterministic(t *testing.T) {
	doc := models.Document{ID: "a.txt", Pages: []models.Page{{Number: 1, Text: strings.Repeat("Reset the router. ", 200)}}}
	c := NewChunker(300, 50)
	assert.Equal(t, c.Split(doc), c.Split(doc))
}

func TestChunker_Defaults(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, 1000, c.Size)
	assert.Equal(t, 200, c.Overlap)
}

func TestHeadingTitle(t *testing.T) {
	tests := []struct {
		line  string
		title string
		ok    bool
	}{
		{"2.1 Data Packages", "2.1 Data Packages", true},
		{"3) Troubleshooting", "3 Troubleshooting", true},
		{"HOME BROADBAND", "HOME BROADBAND", true},
		{"1. Data Packages", "1 Data Packages", true},
		{"2024", "", false},
		{"30 Days validity", "", false},
		{"20 GB", "", false},
		{"1. Call the hotline and wait for an agent.", "", false},
		{"The unlimited plan costs $20/month.", "", false},
		{"a lowercase line", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			title, ok := HeadingTitle(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, title)
		})
	}
}
