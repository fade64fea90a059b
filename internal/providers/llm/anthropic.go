package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sandevgo/docportal/internal/core"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

type Anthropic struct {
	baseProvider
}

func NewAnthropic(opts Options) *Anthropic {
	if opts.BaseURL == "" {
		opts.BaseURL = anthropicBaseURL
	}
	opts.RequireKey = true
	return &Anthropic{
		baseProvider: newBaseProvider(opts),
	}
}

type anthropicPayload struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
	Messages  []core.Message `json:"messages"`
	Stream    bool           `json:"stream,omitempty"`
}

func (a *Anthropic) headers(ctx context.Context) map[string]string {
	return map[string]string{
		"x-api-key":         a.key(ctx),
		"anthropic-version": anthropicVersion,
	}
}

// payload moves the system prompt out of the message list, as the Messages API requires.
func (a *Anthropic) payload(req core.CompletionRequest, stream bool) anthropicPayload {
	var messages []core.Message
	for _, m := range req.Messages() {
		if m.Role == core.RoleSystem {
			continue
		}
		messages = append(messages, m)
	}
	return anthropicPayload{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
		System:    req.System,
		Messages:  messages,
		Stream:    stream,
	}
}

func (a *Anthropic) Complete(ctx context.Context, req core.CompletionRequest) (core.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.doRequest(ctx, http.MethodPost, "/v1/messages", a.payload(req, false), a.headers(ctx))
	if err != nil {
		return core.Completion{}, err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return core.Completion{}, err
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return core.Completion{Text: text.String(), FinishReason: anthropicFinish(result.StopReason)}, nil
}

func (a *Anthropic) Stream(ctx context.Context, req core.CompletionRequest) (<-chan core.Chunk, error) {
	headers := a.headers(ctx)
	headers["Accept"] = "text/event-stream"

	resp, err := a.doRequest(ctx, http.MethodPost, "/v1/messages", a.payload(req, true), headers)
	if err != nil {
		return nil, err
	}

	return a.startStream(ctx, resp.Body, parseAnthropicEvent), nil
}

func parseAnthropicEvent(ev sseEvent) (streamDelta, error) {
	switch ev.Event {
	case "message_stop":
		return streamDelta{Done: true}, nil
	case "content_block_delta":
		var delta struct {
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &delta); err != nil {
			return streamDelta{}, fmt.Errorf("decode content_block_delta: %w", err)
		}
		return streamDelta{Text: delta.Delta.Text}, nil
	case "message_delta":
		var delta struct {
			Delta struct {
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &delta); err != nil {
			return streamDelta{}, fmt.Errorf("decode message_delta: %w", err)
		}
		return streamDelta{Finish: anthropicFinish(delta.Delta.StopReason)}, nil
	case "error":
		var e struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal([]byte(ev.Data), &e)
		return streamDelta{}, fmt.Errorf("upstream error: %s: %s", e.Error.Type, e.Error.Message)
	}
	// message_start, content_block_start/stop, ping
	return streamDelta{}, nil
}

func anthropicFinish(reason string) string {
	switch reason {
	case "":
		return ""
	case "max_tokens":
		return core.FinishLength
	default:
		return core.FinishStop
	}
}

func (a *Anthropic) Models(ctx context.Context) ([]core.Model, error) {
	var models []core.Model
	afterID := ""

	for {
		path := "/v1/models?limit=1000"
		if afterID != "" {
			path = fmt.Sprintf("%s&after_id=%s", path, url.QueryEscape(afterID))
		}

		resp, err := a.doRequest(ctx, http.MethodGet, path, nil, a.headers(ctx))
		if err != nil {
			return nil, err
		}

		var result struct {
			Data []struct {
				ID          string `json:"id"`
				DisplayName string `json:"display_name"`
				Type        string `json:"type"`
			} `json:"data"`
			HasMore bool   `json:"has_more"`
			LastID  string `json:"last_id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return nil, err
		}

		for _, m := range result.Data {
			if m.Type == "model" {
				models = append(models, core.Model{
					ID:   m.ID,
					Name: m.DisplayName,
					// ContextLength is not provided by the Anthropic models API
				})
			}
		}

		if !result.HasMore {
			break
		}
		afterID = result.LastID
	}

	return models, nil
}
