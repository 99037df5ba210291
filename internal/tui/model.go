// Package tui is the interactive terminal front end: one question in, one answer out.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// Title is shown at the top of the form.
	Title = "Mental Health RAG Assistant"
	// Description is shown under the title.
	Description = "Ask a question about mental health. Answers are grounded in the indexed article."
)

// Answerer returns an answer or a user-facing error message. It never fails.
type Answerer interface {
	Answer(ctx context.Context, question string) string
}

type answerMsg struct {
	question string
	answer   string
}

// Model is the Bubble Tea model for the question form.
type Model struct {
	answerer Answerer
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	asked    string
	answer   string
	ready    bool
}

// New creates the form. timeout bounds each answer; zero means no limit.
func New(answerer Answerer, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your question and press Enter"
	ti.CharLimit = 4000
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		answerer: answerer,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(80, 10),
		spinner:  sp,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles keys, window size, spinner ticks and finished answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := answerBoxStyle.GetFrameSize()
		fw, _ := answerBoxStyle.GetFrameSize()
		// title, description, input box, status and spacing
		reserved := 8 + fh
		m.viewport.Width = max(20, msg.Width-fw)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := m.input.Value()
			if strings.TrimSpace(q) == "" || m.waiting {
				return m, nil
			}
			m.waiting = true
			m.asked = q
			m.answer = ""
			m.viewport.SetContent(m.renderAnswer())
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case answerMsg:
		m.waiting = false
		m.asked = msg.question
		m.answer = msg.answer
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	answerer, timeout := m.answerer, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return answerMsg{question: q, answer: answerer.Answer(ctx, q)}
	}
}

// View renders the form.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var status string
	if m.waiting {
		status = m.spinner.View() + " Thinking..."
	} else {
		status = helpStyle.Render("enter: ask • ↑/↓ pgup/pgdn: scroll • esc: quit")
	}
	return titleStyle.Render(Title) + "\n" +
		descriptionStyle.Render(Description) + "\n\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		answerBoxStyle.Render(m.viewport.View()) + "\n" +
		status
}

func (m Model) renderAnswer() string {
	switch {
	case m.asked == "":
		return "The answer will appear here."
	case m.waiting:
		return questionStyle.Render("Q: "+m.asked) + "\n\n..."
	default:
		return questionStyle.Render("Q: "+m.asked) + "\n\n" + wrap(m.answer, m.viewport.Width)
	}
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	descriptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	questionStyle    = lipgloss.NewStyle().Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
