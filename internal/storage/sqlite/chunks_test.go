package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/docportal/internal/core"
)

func newTestRepo(t *testing.T) *ChunkRepo {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := NewDB(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewChunkRepo(db)
}

func sampleChunks() []core.StoredChunk {
	return []core.StoredChunk{
		{Index: 1, Content: "second", TokenSize: 1, Embedding: []float32{0, 1}},
		{Index: 0, Content: "first", TokenSize: 1, Embedding: []float32{1, 0.5}},
	}
}

func TestChunkRepo_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveContext(ctx, "ctx-1", "doc.txt", sampleChunks()))

	got, err := repo.GetChunks(ctx, "ctx-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, []float32{1, 0.5}, got[0].Embedding)
	assert.Equal(t, "ctx-1", got[1].ContextID)
	assert.False(t, got[0].CreatedAt.IsZero())

	n, err := repo.CountContexts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkRepo_DuplicateHandleRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveContext(ctx, "ctx-1", "doc", sampleChunks()))
	assert.Error(t, repo.SaveContext(ctx, "ctx-1", "doc", sampleChunks()))

	got, err := repo.GetChunks(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestChunkRepo_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveContext(ctx, "a", "a", sampleChunks()))
	require.NoError(t, repo.SaveContext(ctx, "b", "b", sampleChunks()))
	require.NoError(t, repo.SaveContext(ctx, "c", "c", sampleChunks()))

	require.NoError(t, repo.DeleteContext(ctx, "a"))
	got, err := repo.GetChunks(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := repo.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.CountContexts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewDB_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "portal.db")
	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	repo := NewChunkRepo(db)
	require.NoError(t, repo.SaveContext(context.Background(), "x", "x", sampleChunks()))
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	blob, err := serializeVector(in)
	require.NoError(t, err)
	assert.Len(t, blob, 12)

	out, err := deserializeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = deserializeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
