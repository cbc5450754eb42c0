package models

import "time"

// AnswerSource tells where an answer came from.
type AnswerSource string

const (
	SourceDocuments   AnswerSource = "documents"
	SourceWeb         AnswerSource = "web"
	SourceNone        AnswerSource = "none"
	SourceUnavailable AnswerSource = "unavailable"
)

// Answer is the outcome of one question.
type Answer struct {
	Text       string         `json:"text"`
	Source     AnswerSource   `json:"source"`
	Chunks     []SearchResult `json:"chunks,omitempty"`
	WebResults []WebResult    `json:"web_results,omitempty"`
}

// Turn is one question/answer pair of a conversation.
type Turn struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Source   AnswerSource `json:"source"`
	At       time.Time    `json:"at"`
}

// Conversation is the ordered chat history of a single user.
// It is a value: Append returns a new conversation and leaves the receiver untouched.
type Conversation struct {
	Turns []Turn `json:"turns"`
}

// Append returns a copy of c with t added at the end.
func (c Conversation) Append(t Turn) Conversation {
	turns := make([]Turn, len(c.Turns), len(c.Turns)+1)
	copy(turns, c.Turns)
	return Conversation{Turns: append(turns, t)}
}

// Len returns the number of turns.
func (c Conversation) Len() int { return len(c.Turns) }
