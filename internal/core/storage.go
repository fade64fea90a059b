package core

import (
	"context"
	"time"
)

type ChunkRepository interface {
	SaveContext(ctx context.Context, handle ContextHandle, name string, chunks []StoredChunk) error
	GetChunks(ctx context.Context, handle ContextHandle) ([]StoredChunk, error)
	DeleteContext(ctx context.Context, handle ContextHandle) error
	Purge(ctx context.Context) (int64, error)
}

type StoredChunk struct {
	ID        int64     `json:"id"`
	ContextID string    `json:"context_id"`
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	TokenSize int       `json:"token_size"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
