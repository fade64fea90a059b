package core

import "context"

// CmdRouter resolves slash commands before input reaches the orchestrator.
type CmdRouter interface {
	// Execute runs input as a command. The bool is false when input is not a command.
	Execute(ctx context.Context, sessionID, input string) (string, bool)
	ListCommands() []Command
}

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, sessionID string, args []string) (string, error)
}
