package rag

import (
	"fmt"
	"strings"

	"telecom-assistant/internal/models"
)

// DocumentPrompt asks the model to answer only from the retrieved chunks and
// to report whether the answer was found.
func DocumentPrompt(question string, results []models.SearchResult, sentinel string) string {
	parts := make([]string, len(results))
	for i, r := range results {
		var ref strings.Builder
		fmt.Fprintf(&ref, "[%d] %s, page %d", i+1, r.Chunk.DocumentID, r.Chunk.PageNumber)
		if r.Chunk.Section != "" {
			fmt.Fprintf(&ref, ", %s", r.Chunk.Section)
		}
		parts[i] = ref.String() + "\n" + r.Chunk.Content
	}
	return fmt.Sprintf(models.DocumentPromptTemplate, strings.Join(parts, models.ContextSeparator), question, sentinel)
}

// WebPrompt asks the model to answer from web search results.
func WebPrompt(question string, results []models.WebResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[%d] %s\n%s\n%s", i+1, r.Title, r.URL, r.Snippet)
	}
	return fmt.Sprintf(models.WebPromptTemplate, strings.Join(parts, models.ContextSeparator), question)
}
