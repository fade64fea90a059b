package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docportal/pkg/log"
)

type RAGConfig struct {
	EmbeddingModel     string `env:"PORTAL_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingBaseURL   string `env:"PORTAL_EMBEDDING_BASE_URL" envDefault:"https://api.openai.com"`
	EmbeddingAPIKey    string `env:"PORTAL_EMBEDDING_API_KEY" redact:"true"`
	EmbeddingBatchSize int    `env:"PORTAL_EMBEDDING_BATCH_SIZE" envDefault:"64"`

	ChunkMaxTokens     int `env:"PORTAL_CHUNK_MAX_TOKENS" envDefault:"256"`
	ChunkOverlapTokens int `env:"PORTAL_CHUNK_OVERLAP_TOKENS" envDefault:"50"`
}

func LoadRAGConfig() (*RAGConfig, error) {
	cfg := &RAGConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func NewRAGConfig(ctx context.Context) *RAGConfig {
	cfg, err := LoadRAGConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse RAG config")
	}
	return cfg
}
