package command

import (
	"context"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/service/session"
)

type sessionStore interface {
	Get(id string) (*session.Session, error)
	Reset(ctx context.Context, id string) (*session.Session, error)
}

type ruleLister interface {
	Rules() []core.Rule
}

type modelLister interface {
	Models(ctx context.Context) ([]core.Model, error)
}

// NewCommands returns the commands that only touch the caller's own session.
// They are safe on every transport.
func NewCommands(
	sessions sessionStore,
	rules ruleLister,
	state core.GlobalState,
) []core.Command {
	return []core.Command{
		NewNewCommand(sessions),
		NewStatusCommand(sessions, state),
		NewRulesCommand(rules),
	}
}

// WithModelControl adds /model. Switching the model affects every session,
// so only trusted operators (the local terminal, the Telegram owner) get it.
func WithModelControl(
	commands []core.Command,
	cfg core.ProviderConfig,
	state core.GlobalState,
	models modelLister,
) []core.Command {
	return append(commands, NewModelCommand(cfg, state, models))
}
