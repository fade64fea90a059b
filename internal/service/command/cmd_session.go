package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sandevgo/docportal/internal/core"
)

type NewCommand struct {
	sessions  sessionStore
	formatter *ResponseFormatter
}

func NewNewCommand(sessions sessionStore) *NewCommand {
	return &NewCommand{sessions: sessions, formatter: NewResponseFormatter()}
}

func (c *NewCommand) Name() string {
	return "new"
}

func (c *NewCommand) Description() string {
	return "Start over: forget the document and the conversation"
}

func (c *NewCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if _, err := c.sessions.Reset(ctx, sessionID); err != nil {
		return "", err
	}
	return c.formatter.Combine(
		c.formatter.Success("New session started"),
		c.formatter.Tip("Upload a document to begin."),
	), nil
}

type StatusCommand struct {
	sessions  sessionStore
	state     core.GlobalState
	formatter *ResponseFormatter
}

func NewStatusCommand(sessions sessionStore, state core.GlobalState) *StatusCommand {
	return &StatusCommand{sessions: sessions, state: state, formatter: NewResponseFormatter()}
}

func (c *StatusCommand) Name() string {
	return "status"
}

func (c *StatusCommand) Description() string {
	return "Show the loaded document and session state"
}

func (c *StatusCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	s, err := c.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	snap := s.Snapshot()

	document := snap.Document
	if document == "" {
		document = "none"
	}

	return c.formatter.Combine(
		c.formatter.Info("Session"),
		c.formatter.Label("State", snap.State),
		c.formatter.Label("Document", document),
		c.formatter.Label("Messages", strconv.Itoa(len(snap.Transcript))),
		c.formatter.Label("Model", c.state.CurrentModel()),
	), nil
}

type RulesCommand struct {
	rules     ruleLister
	formatter *ResponseFormatter
}

func NewRulesCommand(rules ruleLister) *RulesCommand {
	return &RulesCommand{rules: rules, formatter: NewResponseFormatter()}
}

func (c *RulesCommand) Name() string {
	return "rules"
}

func (c *RulesCommand) Description() string {
	return "List keywords answered without the model"
}

func (c *RulesCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	rules := c.rules.Rules()
	if len(rules) == 0 {
		return c.formatter.Info("No keyword rules configured"), nil
	}

	items := make([]string, len(rules))
	for i, r := range rules {
		items[i] = fmt.Sprintf("`%s`", r.Trigger)
	}
	return c.formatter.Combine(
		c.formatter.Info("Keyword Rules"),
		c.formatter.List(items),
		c.formatter.Tip("Messages containing a keyword get the canned answer, first match wins."),
	), nil
}
