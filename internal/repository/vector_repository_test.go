package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhoomash/publicwayservice-sub000/internal/models"
)

func TestVectorRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newComplaintRepoMock(t)
	defer cleanup()
	repo := NewVectorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO complaint_vectors")).
		WithArgs("c-1", "ref-1", "hashing-256", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertVector(context.Background(), models.VectorRecord{
		ComplaintID: "c-1", VectorRef: "ref-1", Model: "hashing-256", Embedding: []float32{0.5, 0.5},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorRepositoryUpsertMissingComplaint(t *testing.T) {
	db, mock, cleanup := newComplaintRepoMock(t)
	defer cleanup()
	repo := NewVectorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE EXISTS (SELECT 1 FROM complaints WHERE id = $1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpsertVector(context.Background(), models.VectorRecord{ComplaintID: "gone", Model: "hashing-256"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestVectorRepositoryList(t *testing.T) {
	db, mock, cleanup := newComplaintRepoMock(t)
	defer cleanup()
	repo := NewVectorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT complaint_id, vector_ref, model, embedding FROM complaint_vectors WHERE model = $1")).
		WithArgs("hashing-256").
		WillReturnRows(sqlmock.NewRows([]string{"complaint_id", "vector_ref", "model", "embedding"}).
			AddRow("c-1", "ref-1", "hashing-256", "{0.6,0.8}"))

	records, err := repo.ListVectors(context.Background(), "hashing-256")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 0.6, records[0].Embedding[0], 1e-6)
	assert.InDelta(t, 0.8, records[0].Embedding[1], 1e-6)
	require.NoError(t, mock.ExpectationsWereMet())
}
