package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/docportal/internal/core"
)

type Router struct {
	commands  map[string]core.Command
	refused   map[string]bool
	formatter *ResponseFormatter
}

type RouterOption func(*Router)

// WithRefused answers the named commands with a refusal instead of letting
// them reach the orchestrator. Used where a command exists but is not allowed.
func WithRefused(names ...string) RouterOption {
	return func(r *Router) {
		for _, name := range names {
			r.refused[name] = true
		}
	}
}

func New(commands []core.Command, opts ...RouterOption) *Router {
	c := &Router{
		commands:  make(map[string]core.Command),
		refused:   make(map[string]bool),
		formatter: NewResponseFormatter(),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	c.commands["help"] = &helpCommand{router: c}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

func (c *Router) Execute(ctx context.Context, sessionID, input string) (string, bool) {
	if !IsCommand(input) {
		return "", false
	}

	parts := strings.Fields(input)
	// Telegram appends the bot name in groups: /status@portal_bot
	name, _, _ := strings.Cut(strings.TrimPrefix(parts[0], "/"), "@")
	args := parts[1:]

	name = strings.ToLower(name)
	cmd, ok := c.commands[name]
	if !ok {
		if c.refused[name] {
			return fmt.Sprintf("/%s is not available on this channel.", name), true
		}
		// Not ours: "/wifi not working" is still a question.
		return "", false
	}

	result, err := cmd.Execute(ctx, sessionID, args)
	if err != nil {
		return c.formatter.Error(name, err), true
	}
	return result, true
}

// ListCommands returns commands sorted by name.
func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

type helpCommand struct {
	router *Router
}

func (h *helpCommand) Name() string {
	return "help"
}

func (h *helpCommand) Description() string {
	return "List available commands"
}

func (h *helpCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	f := h.router.formatter
	items := make([]string, 0, len(h.router.commands))
	for _, cmd := range h.router.ListCommands() {
		items = append(items, fmt.Sprintf("`/%s` %s", cmd.Name(), cmd.Description()))
	}
	return f.Combine(
		f.Info("Commands"),
		f.List(items),
		f.Tip("Upload a document, then ask anything about it."),
	), nil
}
