package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/conversation"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/internal/service/ui"
)

const (
	eventBuffer = 64
	footerLines = 3
	welcomeText = "Load a document with /doc <path>, then ask questions about it. /help lists commands, /quit exits."
)

type orchestrator interface {
	Handle(ctx context.Context, s *session.Session, text string, sink core.Sink) error
	Ingest(ctx context.Context, s *session.Session, doc core.Document, sink core.Sink) error
}

type sessionStore interface {
	GetOrCreate(id string) *session.Session
}

type role int

const (
	roleInfo role = iota
	roleUser
	roleAssistant
	roleError
)

type entry struct {
	role role
	text string
}

// Model is a single-session chat in the terminal.
type Model struct {
	ctx     context.Context
	orch    orchestrator
	router    core.CmdRouter
	sessions  sessionStore
	sessionID string
	limits    rag.Limits

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	entries   []entry
	streaming bool
	pending   bool
	events    <-chan tea.Msg
	width     int
}

func NewModel(
	ctx context.Context,
	orch orchestrator,
	router core.CmdRouter,
	sessions sessionStore,
	sessionID string,
	limits rag.Limits,
) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the document, or /doc <path>"
	ti.Prompt = "› "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(ui.StatusStyle))

	return Model{
		ctx:       ctx,
		orch:      orch,
		router:    router,
		sessions:  sessions,
		sessionID: sessionID,
		limits:    limits,
		viewport:  viewport.New(80, 20),
		input:     ti,
		spinner:   sp,
		entries:   []entry{{role: roleInfo, text: welcomeText}},
		width:     80,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-footerLines, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.streaming = false
		m.entries = append(m.entries, entry{role: roleAssistant, text: msg.text})
		m.refresh()
		return m, listen(m.events)

	case deltaMsg:
		if !m.streaming {
			m.streaming = true
			m.entries = append(m.entries, entry{role: roleAssistant})
		}
		m.entries[len(m.entries)-1].text += msg.text
		m.refresh()
		return m, listen(m.events)

	case doneMsg:
		if m.streaming {
			m.entries[len(m.entries)-1].text = msg.text
		} else {
			m.entries = append(m.entries, entry{role: roleAssistant, text: msg.text})
		}
		m.streaming = false
		m.refresh()
		return m, listen(m.events)

	case failMsg:
		m.streaming = false
		m.entries = append(m.entries, entry{role: roleError, text: conversation.Describe(msg.err)})
		m.refresh()
		return m, listen(m.events)

	case turnEndMsg:
		m.pending = false
		m.streaming = false
		m.events = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.pending {
		return m, nil
	}
	m.input.Reset()
	// /new replaces the session, so every turn looks it up again.
	orch, router, sessions, id, limits := m.orch, m.router, m.sessions, m.sessionID, m.limits

	switch {
	case text == "/quit" || text == "/exit":
		return m, tea.Quit
	case text == "/doc" || strings.HasPrefix(text, "/doc "):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/doc"))
		m.entries = append(m.entries, entry{role: roleUser, text: text})
		m.refresh()
		if path == "" {
			m.entries = append(m.entries, entry{role: roleError, text: "Usage: /doc <path>"})
			m.refresh()
			return m, nil
		}
		cmd := m.start(func(ctx context.Context, sink core.Sink) {
			ingest(ctx, orch, sessions.GetOrCreate(id), path, limits, sink)
		})
		return m, cmd
	}

	m.entries = append(m.entries, entry{role: roleUser, text: text})
	m.refresh()
	cmd := m.start(func(ctx context.Context, sink core.Sink) {
		if out, ok := router.Execute(ctx, id, text); ok {
			_ = sink.Reply(ctx, out)
			return
		}
		// The sink already shows the failure.
		_ = orch.Handle(ctx, sessions.GetOrCreate(id), text, sink)
	})
	return m, cmd
}

func ingest(ctx context.Context, orch orchestrator, s *session.Session, path string, limits rag.Limits, sink core.Sink) {
	doc, err := rag.LoadFile(ctx, path, limits)
	if err != nil {
		_ = sink.Fail(ctx, err)
		return
	}
	_ = orch.Ingest(ctx, s, doc, sink)
}

// start runs one turn off the UI goroutine.
func (m *Model) start(turn func(ctx context.Context, sink core.Sink)) tea.Cmd {
	events := make(chan tea.Msg, eventBuffer)
	m.events = events
	m.pending = true

	ctx := m.ctx
	go func() {
		defer close(events)
		turn(ctx, &chanSink{events: events})
	}()
	return tea.Batch(m.spinner.Tick, listen(events))
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m Model) render() string {
	wrap := lipgloss.NewStyle().Width(max(m.width-2, 10))

	var b strings.Builder
	for _, e := range m.entries {
		switch e.role {
		case roleUser:
			b.WriteString(ui.UserStyle.Render("You") + "\n")
			b.WriteString(wrap.Render(e.text))
		case roleAssistant:
			b.WriteString(ui.AssistantStyle.Render(core.PortalName) + "\n")
			b.WriteString(wrap.Render(e.text))
		case roleError:
			b.WriteString(ui.ErrorStyle.Render(wrap.Render("⚠ " + e.text)))
		default:
			b.WriteString(ui.DescStyle.Render(wrap.Render(e.text)))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) View() string {
	status := ""
	if m.pending {
		status = m.spinner.View() + ui.StatusStyle.Render(" thinking…")
	} else if doc := m.sessions.GetOrCreate(m.sessionID).Document(); doc != "" {
		status = ui.StatusStyle.Render("document: " + doc)
	}
	return m.viewport.View() + "\n" + status + "\n" + m.input.View()
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, orch orchestrator, router core.CmdRouter, sessions sessionStore, sessionID string, limits rag.Limits) error {
	p := tea.NewProgram(NewModel(ctx, orch, router, sessions, sessionID, limits), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
