package rag

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/log"
)

// Retriever chunks, embeds and stores documents, and ranks their chunks
// against questions by cosine similarity.
type Retriever struct {
	chunker  *Chunker
	embedder core.Embedder
	repo     core.ChunkRepository
}

func NewRetriever(chunker *Chunker, embedder core.Embedder, repo core.ChunkRepository) *Retriever {
	return &Retriever{
		chunker:  chunker,
		embedder: embedder,
		repo:     repo,
	}
}

func (r *Retriever) CheckCredentials(ctx context.Context) error {
	if checker, ok := r.embedder.(core.CredentialChecker); ok {
		return checker.CheckCredentials(ctx)
	}
	return nil
}

func (r *Retriever) Ingest(ctx context.Context, doc core.Document) (core.ContextHandle, error) {
	chunks := r.chunker.Split(doc.Text)
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: document %q contains no text", core.ErrIngestion, doc.Name)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("%w: embed document: %w", core.ErrIngestion, err)
	}
	if len(vecs) != len(chunks) {
		return "", fmt.Errorf("%w: got %d embeddings for %d chunks", core.ErrIngestion, len(vecs), len(chunks))
	}

	stored := make([]core.StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = core.StoredChunk{
			Index:     c.Index,
			Content:   c.Text,
			TokenSize: c.TokenSize,
			Embedding: vecs[i],
		}
	}

	handle := core.ContextHandle(uuid.NewString())
	if err := r.repo.SaveContext(ctx, handle, doc.Name, stored); err != nil {
		return "", fmt.Errorf("%w: store document: %w", core.ErrIngestion, err)
	}

	log.FromCtx(ctx).Info().
		Str("document", doc.Name).
		Int("chunks", len(chunks)).
		Str("context", string(handle)).
		Msg("Document ingested")

	return handle, nil
}

// Query returns up to limit passages by descending similarity. Ties keep document order.
func (r *Retriever) Query(ctx context.Context, handle core.ContextHandle, question string, limit int) ([]core.Passage, error) {
	if limit <= 0 {
		return nil, nil
	}

	stored, err := r.repo.GetChunks(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}

	qv, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(qv))
	}

	passages := make([]core.Passage, len(stored))
	for i, c := range stored {
		passages[i] = core.Passage{
			Text:  c.Content,
			Index: c.Index,
			Score: cosine(qv[0], c.Embedding),
		}
	}

	slices.SortStableFunc(passages, func(a, b core.Passage) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Index - b.Index
		}
	})

	if len(passages) > limit {
		passages = passages[:limit]
	}
	return passages, nil
}

func (r *Retriever) Release(ctx context.Context, handle core.ContextHandle) error {
	if handle == "" {
		return nil
	}
	return r.repo.DeleteContext(ctx, handle)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
