package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sandevgo/docportal/internal/core"
)

const (
	ollamaBaseURL       = "http://localhost:11434"
	ollamaContextLength = 32768
)

type Ollama struct {
	*OpenAICompatible
}

func NewOllama(opts Options) *Ollama {
	if opts.BaseURL == "" {
		opts.BaseURL = ollamaBaseURL
	}
	return &Ollama{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			Options:    opts,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}),
	}
}

func (o *Ollama) Models(ctx context.Context) ([]core.Model, error) {
	resp, err := o.doRequest(ctx, http.MethodGet, "/api/tags", nil, o.headers(ctx))
	if err != nil {
		return nil, fmt.Errorf("ollama not available: %w", err)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}

	models := make([]core.Model, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, core.Model{
			ID:            m.Name,
			Name:          m.Name,
			ContextLength: ollamaContextLength,
		})
	}
	return models, nil
}
