package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

type (
	replyMsg   struct{ text string }
	deltaMsg   struct{ text string }
	doneMsg    struct{ text string }
	failMsg    struct{ err error }
	turnEndMsg struct{}
)

// chanSink forwards orchestrator output to the bubbletea loop.
type chanSink struct {
	events chan<- tea.Msg
}

func (s *chanSink) send(ctx context.Context, msg tea.Msg) error {
	select {
	case s.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chanSink) Reply(ctx context.Context, text string) error {
	return s.send(ctx, replyMsg{text: text})
}

func (s *chanSink) Delta(ctx context.Context, text string) error {
	return s.send(ctx, deltaMsg{text: text})
}

func (s *chanSink) Done(ctx context.Context, text string) error {
	return s.send(ctx, doneMsg{text: text})
}

func (s *chanSink) Fail(ctx context.Context, err error) error {
	return s.send(ctx, failMsg{err: err})
}

func listen(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return turnEndMsg{}
		}
		return msg
	}
}
