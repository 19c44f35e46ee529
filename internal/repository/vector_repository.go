package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

// VectorRepository persists complaint embeddings.
type VectorRepository struct {
	db *sqlx.DB
}

// NewVectorRepository constructs the repository.
func NewVectorRepository(db *sqlx.DB) *VectorRepository {
	return &VectorRepository{db: db}
}

type vectorRow struct {
	ComplaintID string          `db:"complaint_id"`
	VectorRef   string          `db:"vector_ref"`
	Model       string          `db:"model"`
	Embedding   pq.Float64Array `db:"embedding"`
}

// UpsertVector stores the embedding for an existing complaint. It returns
// sql.ErrNoRows when the complaint no longer exists.
func (r *VectorRepository) UpsertVector(ctx context.Context, record models.VectorRecord) error {
	const query = `INSERT INTO complaint_vectors (complaint_id, vector_ref, model, embedding, updated_at)
	SELECT $1, $2, $3, $4, $5 WHERE EXISTS (SELECT 1 FROM complaints WHERE id = $1)
	ON CONFLICT (complaint_id) DO UPDATE
	SET vector_ref = EXCLUDED.vector_ref, model = EXCLUDED.model, embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at`
	embedding := make(pq.Float64Array, len(record.Embedding))
	for i, v := range record.Embedding {
		embedding[i] = float64(v)
	}
	result, err := r.db.ExecContext(ctx, query, record.ComplaintID, record.VectorRef, record.Model, embedding, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert complaint vector: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check vector upsert rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListVectors returns every stored embedding produced by model.
func (r *VectorRepository) ListVectors(ctx context.Context, model string) ([]models.VectorRecord, error) {
	const query = `SELECT complaint_id, vector_ref, model, embedding FROM complaint_vectors WHERE model = $1 ORDER BY complaint_id`
	var rows []vectorRow
	if err := r.db.SelectContext(ctx, &rows, query, model); err != nil {
		return nil, fmt.Errorf("list complaint vectors: %w", err)
	}
	records := make([]models.VectorRecord, 0, len(rows))
	for _, row := range rows {
		embedding := make([]float32, len(row.Embedding))
		for i, v := range row.Embedding {
			embedding[i] = float32(v)
		}
		records = append(records, models.VectorRecord{
			ComplaintID: row.ComplaintID,
			VectorRef:   row.VectorRef,
			Model:       row.Model,
			Embedding:   embedding,
		})
	}
	return records, nil
}
