package rag

import (
	"encoding/json"
	"regexp"
	"strings"

	"telecom-assistant/internal/models"
)

var (
	thinkRe = regexp.MustCompile(models.ThinkTag)
	fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// Reply is a parsed model answer.
type Reply struct {
	Found  bool
	Answer string
}

type structuredReply struct {
	Found  *bool   `json:"found"`
	Answer *string `json:"answer"`
}

func (s structuredReply) valid() bool { return s.Found != nil || s.Answer != nil }

// ParseReply reads a document-stage reply. A JSON {"found", "answer"} object
// is authoritative; an object with only "answer" is judged by its answer.
// Anything else is treated as free text and counts as not found when it is
// empty or mentions the sentinel.
func ParseReply(raw, sentinel string) Reply {
	text := CleanText(raw)

	if s, ok := decodeStructured(text); ok {
		var answer string
		if s.Answer != nil {
			answer = strings.TrimSpace(*s.Answer)
		}
		found := answer != "" && !isSentinel(answer, sentinel)
		if s.Found != nil {
			found = found && *s.Found
		}
		return Reply{Found: found, Answer: answer}
	}

	return Reply{Found: text != "" && !isSentinel(text, sentinel), Answer: text}
}

// CleanText removes reasoning blocks and code fences around a model reply.
func CleanText(raw string) string {
	text := strings.TrimSpace(thinkRe.ReplaceAllString(raw, ""))
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	return text
}

func decodeStructured(text string) (structuredReply, bool) {
	var s structuredReply
	if err := json.Unmarshal([]byte(text), &s); err == nil && s.valid() {
		return s, true
	}
	// some models wrap the object in prose
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return s, false
	}
	s = structuredReply{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil || !s.valid() {
		return s, false
	}
	return s, true
}

func isSentinel(text, sentinel string) bool {
	if sentinel == "" {
		sentinel = models.DefaultSentinel
	}
	return strings.Contains(strings.ToUpper(text), strings.ToUpper(sentinel))
}
