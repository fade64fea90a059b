package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sandevgo/docportal/internal/core"
)

type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
}

type OpenAICompatibleConfig struct {
	Options
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.Options),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
	}
}

type chatPayload struct {
	Model    string         `json:"model"`
	Messages []core.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

func (o *OpenAICompatible) headers(ctx context.Context) map[string]string {
	headers := make(map[string]string, len(o.extraHeaders)+1)
	if key := o.key(ctx); o.authHeader != "" && key != "" {
		headers[o.authHeader] = o.authPrefix + key
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (o *OpenAICompatible) Complete(ctx context.Context, req core.CompletionRequest) (core.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	payload := chatPayload{Model: o.model, Messages: req.Messages()}
	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload, o.headers(ctx))
	if err != nil {
		return core.Completion{}, err
	}

	var result struct {
		Choices []struct {
			Message      core.Message `json:"message"`
			FinishReason string       `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return core.Completion{}, err
	}
	if len(result.Choices) == 0 {
		return core.Completion{}, fmt.Errorf("empty choices")
	}

	return core.Completion{
		Text:         result.Choices[0].Message.Content,
		FinishReason: result.Choices[0].FinishReason,
	}, nil
}

func (o *OpenAICompatible) Stream(ctx context.Context, req core.CompletionRequest) (<-chan core.Chunk, error) {
	headers := o.headers(ctx)
	headers["Accept"] = "text/event-stream"

	payload := chatPayload{Model: o.model, Messages: req.Messages(), Stream: true}
	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload, headers)
	if err != nil {
		return nil, err
	}

	return o.startStream(ctx, resp.Body, parseOpenAIEvent), nil
}

func parseOpenAIEvent(ev sseEvent) (streamDelta, error) {
	if ev.Data == "[DONE]" {
		return streamDelta{Done: true}, nil
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
		return streamDelta{}, fmt.Errorf("decode stream chunk: %w", err)
	}
	if chunk.Error != nil {
		return streamDelta{}, fmt.Errorf("upstream error: %s", chunk.Error.Message)
	}
	if len(chunk.Choices) == 0 {
		return streamDelta{}, nil
	}

	d := streamDelta{Text: chunk.Choices[0].Delta.Content}
	if fr := chunk.Choices[0].FinishReason; fr != nil {
		d.Finish = *fr
	}
	return d, nil
}

// listOpenAIModels reads the /v1/models listing shared by OpenAI-style APIs.
func (o *OpenAICompatible) listOpenAIModels(ctx context.Context) ([]core.Model, error) {
	resp, err := o.doRequest(ctx, http.MethodGet, "/v1/models", nil, o.headers(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}

	var apiResp struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
		} `json:"data"`
	}
	if err := decodeJSON(resp, &apiResp); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	models := make([]core.Model, 0, len(apiResp.Data))
	for _, m := range apiResp.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, core.Model{
			ID:            m.ID,
			Name:          name,
			ContextLength: m.ContextLength,
		})
	}
	return models, nil
}
