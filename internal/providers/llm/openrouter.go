package llm

import (
	"context"

	"github.com/sandevgo/docportal/internal/core"
)

const openRouterBaseURL = "https://openrouter.ai/api"

type OpenRouter struct {
	*OpenAICompatible
}

func NewOpenRouter(opts Options) *OpenRouter {
	if opts.BaseURL == "" {
		opts.BaseURL = openRouterBaseURL
	}
	opts.RequireKey = true
	return &OpenRouter{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			Options:    opts,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
			ExtraHeaders: map[string]string{
				"HTTP-Referer": core.PortalRepositoryURL,
				"X-Title":      core.PortalName,
			},
		}),
	}
}

func (o *OpenRouter) Models(ctx context.Context) ([]core.Model, error) {
	return o.listOpenAIModels(ctx)
}
