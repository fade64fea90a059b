package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/docportal/internal/core"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// SaveContext stores a document context and all its chunks in one transaction.
func (r *ChunkRepo) SaveContext(ctx context.Context, handle core.ContextHandle, name string, chunks []core.StoredChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO contexts (id, name, chunk_count) VALUES (?, ?, ?)`,
		string(handle), name, len(chunks),
	)
	if err != nil {
		return fmt.Errorf("failed to insert context: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (context_id, chunk_index, content, token_size, embedding) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		vecBlob, err := serializeVector(c.Embedding)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, string(handle), c.Index, c.Content, c.TokenSize, vecBlob); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

func (r *ChunkRepo) GetChunks(ctx context.Context, handle core.ContextHandle) ([]core.StoredChunk, error) {
	query := `SELECT id, context_id, chunk_index, content, token_size, embedding, created_at
		FROM chunks WHERE context_id = ? ORDER BY chunk_index`

	rows, err := r.db.QueryContext(ctx, query, string(handle))
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []core.StoredChunk
	for rows.Next() {
		var c core.StoredChunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.ContextID, &c.Index, &c.Content, &c.TokenSize, &blob, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if c.Embedding, err = deserializeVector(blob); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

func (r *ChunkRepo) DeleteContext(ctx context.Context, handle core.ContextHandle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE context_id = ?`, string(handle)); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, string(handle)); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}

	return tx.Commit()
}

// Purge drops every stored context and returns how many were removed.
func (r *ChunkRepo) Purge(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return 0, fmt.Errorf("failed to purge chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM contexts`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge contexts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, tx.Commit()
}

func (r *ChunkRepo) CountContexts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contexts: %w", err)
	}
	return n, nil
}
