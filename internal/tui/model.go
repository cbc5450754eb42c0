package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"telecom-assistant/internal/config"
	"telecom-assistant/internal/models"
)

// Responder answers a question given the conversation so far.
type Responder interface {
	Respond(ctx context.Context, conv models.Conversation, question string) (models.Conversation, models.Answer)
}

// answerMsg carries a finished answer back into the update loop.
type answerMsg struct {
	conv   models.Conversation
	answer models.Answer
}

// Model is the Bubble Tea model of the terminal chat.
type Model struct {
	ctx       context.Context
	assistant Responder
	ui        config.UIConfig
	input     textinput.Model
	viewport  viewport.Model
	conv      models.Conversation
	pending   string
	status    string
	waiting   bool
	ready     bool
}

// New creates the chat model. ctx bounds every answer it requests.
func New(ctx context.Context, assistant Responder, ui config.UIConfig) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your question here..."
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		assistant: assistant,
		ui:        ui,
		input:     ti,
		viewport:  vp,
		status:    "Enter to ask, ctrl+r to clear, ctrl+c to quit.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Conversation returns the turns shown so far.
func (m Model) Conversation() models.Conversation { return m.conv }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, hh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header lines, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-hh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.conv = msg.conv
		m.waiting = false
		m.pending = ""
		m.status = statusFor(msg.answer.Source)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.pending = q
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case "ctrl+r":
			if m.waiting {
				return m, nil
			}
			m.conv = models.Conversation{}
			m.status = "Conversation cleared."
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	conv := m.conv
	return func() tea.Msg {
		next, answer := m.assistant.Respond(m.ctx, conv, question)
		return answerMsg{conv: next, answer: answer}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.ui.Title)
	sub := subtleStyle.Render(m.ui.Subtitle + "  |  " + strings.Join(m.ui.Topics, " · "))
	history := historyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + sub + "\n" + history + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(aiStyle.Render("Assistant: ") + m.ui.Greeting + "\n")
	for _, t := range m.conv.Turns {
		fmt.Fprintf(&b, "\n%s%s\n", userStyle.Render("You: "), t.Question)
		fmt.Fprintf(&b, "%s%s\n", aiStyle.Render("Assistant: "), t.Answer)
		if label := sourceLabel(t.Source); label != "" {
			b.WriteString(subtleStyle.Render("  ("+label+")") + "\n")
		}
	}
	if m.pending != "" {
		fmt.Fprintf(&b, "\n%s%s\n", userStyle.Render("You: "), m.pending)
		b.WriteString(subtleStyle.Render("Assistant is thinking...") + "\n")
	}
	return b.String()
}

func sourceLabel(source models.AnswerSource) string {
	switch source {
	case models.SourceDocuments:
		return "from our guides"
	case models.SourceWeb:
		return "from online sources"
	default:
		return ""
	}
}

func statusFor(source models.AnswerSource) string {
	switch source {
	case models.SourceDocuments:
		return "Answered from the guides."
	case models.SourceWeb:
		return "Answered from online sources."
	case models.SourceUnavailable:
		return "The language model is unavailable."
	default:
		return "No answer found."
	}
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	subtleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	aiStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
