package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"telecom-assistant/internal/models"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Reply
	}{
		{"json found", `{"found": true, "answer": "It costs $20/month."}`, Reply{Found: true, Answer: "It costs $20/month."}},
		{"json not found", `{"found": false, "answer": "NOT_FOUND"}`, Reply{Found: false, Answer: "NOT_FOUND"}},
		{"json fenced", "```json\n{\"found\": true, \"answer\": \"Dial *123#\"}\n```", Reply{Found: true, Answer: "Dial *123#"}},
		{"json with prose", `Here you go: {"found": true, "answer": "Call 100"} hope it helps`, Reply{Found: true, Answer: "Call 100"}},
		{"json found but sentinel answer", `{"found": true, "answer": "not_found"}`, Reply{Found: false, Answer: "not_found"}},
		{"json found but empty", `{"found": true, "answer": "  "}`, Reply{Found: false, Answer: ""}},
		{"think block", "<think>let me check\nthe context</think>\n{\"found\": true, \"answer\": \"Yes\"}", Reply{Found: true, Answer: "Yes"}},
		{"plain sentinel", "NOT_FOUND", Reply{Found: false, Answer: "NOT_FOUND"}},
		{"plain sentinel in sentence", "Sorry, that is NOT_FOUND.", Reply{Found: false, Answer: "Sorry, that is NOT_FOUND."}},
		{"plain answer", "Hold reset for 10 seconds.", Reply{Found: true, Answer: "Hold reset for 10 seconds."}},
		{"json without flag", `{"answer": "The plan costs $20"}`, Reply{Found: true, Answer: "The plan costs $20"}},
		{"json without flag sentinel", `{"answer":"NOT_FOUND"}`, Reply{Found: false, Answer: "NOT_FOUND"}},
		{"json without flag empty", `{"answer": ""}`, Reply{Found: false, Answer: ""}},
		{"json without known keys", `{"reply": "Hold reset"}`, Reply{Found: true, Answer: `{"reply": "Hold reset"}`}},
		{"empty", "   ", Reply{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReply(tt.raw, models.DefaultSentinel))
		})
	}
}

func TestParseReply_CustomSentinel(t *testing.T) {
	assert.False(t, ParseReply("NO_ANSWER", "NO_ANSWER").Found)
	assert.True(t, ParseReply("NOT_FOUND", "NO_ANSWER").Found)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "hi", CleanText("```\nhi\n```"))
	assert.Equal(t, "answer", CleanText("<think>hmm</think> answer "))
	assert.Equal(t, "", CleanText(""))
}

func TestDocumentPrompt(t *testing.T) {
	results := []models.SearchResult{
		{Chunk: models.Chunk{DocumentID: "plans.pdf", PageNumber: 2, Section: "DATA PACKAGES", Content: "Unlimited: $20/month"}},
		{Chunk: models.Chunk{DocumentID: "router.pdf", PageNumber: 5, Content: "Hold reset"}},
	}
	p := DocumentPrompt("How much is unlimited?", results, "NOT_FOUND")

	assert.Contains(t, p, "[1] plans.pdf, page 2, DATA PACKAGES\nUnlimited: $20/month")
	assert.Contains(t, p, "[2] router.pdf, page 5\nHold reset")
	assert.Contains(t, p, "Customer Question: How much is unlimited?")
	assert.Contains(t, p, `"NOT_FOUND"`)
	assert.Contains(t, p, `"found"`)
}

func TestWebPrompt(t *testing.T) {
	p := WebPrompt("weather?", []models.WebResult{{Title: "Forecast", URL: "https://f.example", Snippet: "Sunny"}})
	assert.Contains(t, p, "[1] Forecast\nhttps://f.example\nSunny")
	assert.Contains(t, p, "Question: weather?")
}
