package command

import (
	"context"
	"fmt"
	"sort"

	"github.com/sandevgo/docportal/internal/core"
)

const maxListedModels = 20

type ModelCommand struct {
	cfg       core.ProviderConfig
	state     core.GlobalState
	models    modelLister
	formatter *ResponseFormatter
}

func NewModelCommand(
	cfg core.ProviderConfig,
	state core.GlobalState,
	models modelLister,
) *ModelCommand {
	return &ModelCommand{
		cfg:       cfg,
		state:     state,
		models:    models,
		formatter: NewResponseFormatter(),
	}
}

func (c *ModelCommand) Name() string {
	return "model"
}

func (c *ModelCommand) Description() string {
	return "Show, list or change the current model"
}

func (c *ModelCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Current Model"),
			c.formatter.Label("Provider", c.cfg.GetProvider()),
			c.formatter.Label("Model", c.state.CurrentModel()),
			c.formatter.Usage("/model [provider/]model | /model list"),
			c.formatter.Examples([]string{
				"/model gpt-4o-mini",
				"/model openai/gpt-4o",
				"/model list",
			}),
		), nil
	}

	if args[0] == "list" {
		return c.list(ctx)
	}

	if err := c.state.ChangeModel(ctx, args[0]); err != nil {
		return "", fmt.Errorf("failed to set model: %w", err)
	}

	return c.formatter.Success(fmt.Sprintf("Model changed to: `%s/%s`", c.cfg.GetProvider(), c.state.CurrentModel())), nil
}

func (c *ModelCommand) list(ctx context.Context) (string, error) {
	if c.models == nil {
		return "", fmt.Errorf("model listing is not available")
	}

	models, err := c.models.Models(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list models: %w", err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	items := make([]string, 0, maxListedModels)
	for i, m := range models {
		if i == maxListedModels {
			items = append(items, fmt.Sprintf("… and %d more", len(models)-maxListedModels))
			break
		}
		items = append(items, fmt.Sprintf("`%s`", m.ID))
	}

	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("Models (%s)", c.cfg.GetProvider())),
		c.formatter.List(items),
	), nil
}
