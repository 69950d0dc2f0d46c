package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toolbelt-cli/toolbelt/internal/processor"
)

// QueryRunner processes one query. Implemented by processor.Processor.
type QueryRunner interface {
	Process(ctx context.Context, query string) (*processor.Outcome, error)
}

// ─────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────

var (
	primaryColor = lipgloss.Color("#7C3AED") // violet
	accentColor  = lipgloss.Color("#06B6D4") // cyan
	mutedColor   = lipgloss.Color("#6B7280") // gray
	okColor      = lipgloss.Color("#10B981") // green
	errColor     = lipgloss.Color("#EF4444") // red

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(okColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errColor)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// ─────────────────────────────────────────────────────
// Bubble Tea messages
// ─────────────────────────────────────────────────────

type outcomeMsg struct {
	outcome *processor.Outcome
}

type queryErrMsg struct {
	err error
}

// ─────────────────────────────────────────────────────
// Model
// ─────────────────────────────────────────────────────

type entry struct {
	sender  string
	content string
	time    time.Time
	isUser  bool
	isError bool
}

type replModel struct {
	runner  QueryRunner
	ctx     context.Context
	input   textarea.Model
	chat    viewport.Model
	entries []entry
	busy    bool
	width   int
	height  int
	ready   bool
}

func newReplModel(ctx context.Context, runner QueryRunner) replModel {
	ti := textarea.New()
	ti.Placeholder = "Ask something..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.SetHeight(3)
	ti.ShowLineNumbers = false
	ti.KeyMap.InsertNewline.SetEnabled(false)

	return replModel{
		runner:  runner,
		ctx:     ctx,
		input:   ti,
		entries: []entry{},
	}
}

func (m replModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}

			m.entries = append(m.entries, entry{
				sender:  "You",
				content: text,
				time:    time.Now(),
				isUser:  true,
			})
			m.input.Reset()
			m.busy = true
			m.refreshChat()

			return m, m.runQuery(text)
		}

	case outcomeMsg:
		m.busy = false
		content := msg.outcome.Output
		if content == "" {
			content = "(no tool produced output)"
		}
		m.entries = append(m.entries, entry{
			sender:  "toolbelt",
			content: content,
			time:    time.Now(),
		})
		m.refreshChat()
		return m, nil

	case queryErrMsg:
		m.busy = false
		m.entries = append(m.entries, entry{
			sender:  "error",
			content: msg.err.Error(),
			time:    time.Now(),
			isError: true,
		})
		m.refreshChat()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatH := m.height - 8 // header + input + footer
		if chatH < 3 {
			chatH = 3
		}

		if !m.ready {
			m.chat = viewport.New(m.width-2, chatH)
			m.ready = true
		} else {
			m.chat.Width = m.width - 2
			m.chat.Height = chatH
		}
		m.refreshChat()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *replModel) runQuery(text string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.runner.Process(m.ctx, text)
		if err != nil {
			return queryErrMsg{err: err}
		}
		return outcomeMsg{outcome: outcome}
	}
}

func (m *replModel) refreshChat() {
	if !m.ready {
		return
	}
	m.chat.SetContent(m.renderChat())
	m.chat.GotoBottom()
}

func (m *replModel) renderChat() string {
	var b strings.Builder
	for _, e := range m.entries {
		stamp := footerStyle.Render(e.time.Format("15:04:05"))
		switch {
		case e.isUser:
			b.WriteString(fmt.Sprintf("%s %s\n", userStyle.Render(e.sender+":"), stamp))
		case e.isError:
			b.WriteString(fmt.Sprintf("%s %s\n", errorStyle.Render(e.sender+":"), stamp))
		default:
			b.WriteString(fmt.Sprintf("%s %s\n", toolStyle.Render(e.sender+":"), stamp))
		}
		b.WriteString(textStyle.Render(e.content))
		b.WriteString("\n\n")
	}
	if m.busy {
		b.WriteString(footerStyle.Render("thinking..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m replModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := headerStyle.Render("toolbelt")
	footer := footerStyle.Render("enter: send · ctrl+c: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.chat.View(),
		m.input.View(),
		footer,
	)
}

// Run starts the interactive REPL and blocks until the user quits.
func Run(ctx context.Context, runner QueryRunner, logger *slog.Logger) error {
	model := newReplModel(ctx, runner)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	logger.Info("repl closed")
	return nil
}
