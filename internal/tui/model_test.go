package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

type fakeAssistant struct {
	calls int
}

func (f *fakeAssistant) Respond(ctx context.Context, conv models.Conversation, question string) (models.Conversation, models.Answer) {
	f.calls++
	answer := models.Answer{Text: "It costs $20/month.", Source: models.SourceDocuments}
	return conv.Append(models.Turn{Question: question, Answer: answer.Text, Source: answer.Source}), answer
}

func newModel(a Responder) Model {
	m := New(context.Background(), a, config.UIConfig{
		Title:    "Telecom Support Assistant",
		Greeting: "Hello!",
		Topics:   []string{"Data Packages"},
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func press(m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func TestModel_AskAndAnswer(t *testing.T) {
	assistant := &fakeAssistant{}
	m := newModel(assistant)
	assert.Contains(t, m.View(), "Hello!")

	m.input.SetValue("How much is unlimited?")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Equal(t, "Thinking...", m.status)

	// a second enter while waiting is ignored
	_, again := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	msg := cmd()
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Equal(t, 1, assistant.calls)
	assert.False(t, m.waiting)
	require.Equal(t, 1, m.Conversation().Len())
	assert.Equal(t, "How much is unlimited?", m.Conversation().Turns[0].Question)
	assert.Equal(t, "Answered from the guides.", m.status)
	assert.Contains(t, m.renderHistory(), "$20/month")
}

func TestModel_BlankQuestionIgnored(t *testing.T) {
	assistant := &fakeAssistant{}
	m := newModel(assistant)
	m.input.SetValue("   ")

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Zero(t, assistant.calls)
}

func TestModel_ClearConversation(t *testing.T) {
	m := newModel(&fakeAssistant{})
	m.conv = models.Conversation{}.Append(models.Turn{Question: "q", Answer: "a"})

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Zero(t, m.Conversation().Len())
	assert.Equal(t, "Conversation cleared.", m.status)
}

func TestModel_Quit(t *testing.T) {
	m := newModel(&fakeAssistant{})
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
