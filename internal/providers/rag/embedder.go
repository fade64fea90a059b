package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/log"
	"github.com/sandevgo/docportal/pkg/retry"
)

const embeddingTimeout = 60 * time.Second

// HTTPEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type HTTPEmbedder struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	retrier   *retry.Retrier
}

type EmbedderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	BatchSize  int
	MaxRetries int
}

func NewHTTPEmbedder(cfg EmbedderConfig) *HTTPEmbedder {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	return &HTTPEmbedder{
		client:    &http.Client{Timeout: embeddingTimeout},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: batch,
		retrier:   retry.NewRetrierWithAttempts(cfg.MaxRetries),
	}
}

func (e *HTTPEmbedder) key(ctx context.Context) string {
	if k := core.APIKeyFromContext(ctx); k != "" {
		return k
	}
	return e.apiKey
}

func (e *HTTPEmbedder) CheckCredentials(ctx context.Context) error {
	if e.key(ctx) == "" {
		return fmt.Errorf("%w: no API key configured for embeddings", core.ErrConfiguration)
	}
	return nil
}

// Embed returns one vector per input text, in input order.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		log.FromCtx(ctx).Debug().Int("from", start).Int("to", end).Msg("embedding batch")
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	return out, nil
}

func (e *HTTPEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	data, err := json.Marshal(map[string]any{
		"model": e.model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	err = e.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(data))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", core.PortalUserAgent)
		if key := e.key(ctx); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}

		resp, err := e.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			statusErr := fmt.Errorf("embeddings http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return retry.Permanent(fmt.Errorf("%w: %w", core.ErrConfiguration, statusErr))
			}
			return retry.Permanent(statusErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return retry.Permanent(fmt.Errorf("decode: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(result.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("embeddings: unexpected index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
