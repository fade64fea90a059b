package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, cfg core.ProviderConfig, streamBuffer int) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.GetProvider()).
		Str("model", cfg.GetModel()).
		Msg("starting llm provider")

	opts := Options{
		BaseURL:      cfg.GetBaseURL(),
		APIKey:       cfg.GetAPIKey(),
		Model:        cfg.GetModel(),
		Timeout:      cfg.GetTimeout(),
		MaxRetries:   cfg.GetMaxRetries(),
		StreamBuffer: streamBuffer,
	}

	switch cfg.GetProvider() {
	case "openai":
		return NewOpenAI(opts), nil
	case "anthropic":
		return NewAnthropic(opts), nil
	case "openrouter":
		return NewOpenRouter(opts), nil
	case "ollama":
		return NewOllama(opts), nil
	case "custom":
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("%w: custom provider requires a base URL", core.ErrConfiguration)
		}
		return NewCustomOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider: %s", core.ErrConfiguration, cfg.GetProvider())
	}
}
