package llm

import (
	"context"

	"github.com/sandevgo/docportal/internal/core"
)

// CustomOpenAI talks to any self-hosted OpenAI-compatible endpoint.
// The key is optional.
type CustomOpenAI struct {
	*OpenAICompatible
}

func NewCustomOpenAI(opts Options) *CustomOpenAI {
	return &CustomOpenAI{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			Options:    opts,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}),
	}
}

func (c *CustomOpenAI) Models(ctx context.Context) ([]core.Model, error) {
	return c.listOpenAIModels(ctx)
}
