package rag

import (
	"context"
	"fmt"

	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/log"
)

// NewFromConfig wires the chunker, embedding client and chunk store.
// fallbackKey is used when no dedicated embedding key is configured.
func NewFromConfig(ctx context.Context, cfg *config.RAGConfig, repo core.ChunkRepository, fallbackKey string, maxRetries int) (*Retriever, error) {
	chunker, err := NewChunker(ChunkerConfig{
		MaxTokens:     cfg.ChunkMaxTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	key := cfg.EmbeddingAPIKey
	if key == "" {
		key = fallbackKey
	}

	embedder := NewHTTPEmbedder(EmbedderConfig{
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     key,
		Model:      cfg.EmbeddingModel,
		BatchSize:  cfg.EmbeddingBatchSize,
		MaxRetries: maxRetries,
	})

	log.FromCtx(ctx).Info().
		Str("model", cfg.EmbeddingModel).
		Int("chunk_tokens", cfg.ChunkMaxTokens).
		Msg("starting retrieval")

	return NewRetriever(chunker, embedder, repo), nil
}

// LimitsFromConfig maps the document size settings onto loader limits.
func LimitsFromConfig(cfg *config.AppConfig) Limits {
	return Limits{
		MaxBytes: cfg.MaxDocumentBytes,
		Policy:   cfg.OversizePolicy,
	}
}
