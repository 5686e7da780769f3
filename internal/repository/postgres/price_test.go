package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
)

func samplePrice() *domain.PricePoint {
	return &domain.PricePoint{
		ID:        "9a7f1f0e-2b8c-4a41-8f0a-1f2e3d4c5b6a",
		ItemID:    "3f0c3b7e-4a4e-4b8e-9c57-6d1e6f3d2a10",
		Price:     1750,
		Timestamp: "2024-05-02",
		Notes:     "auction",
		CreatedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestPriceRepository_Record(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceRepository(mock)
	p := samplePrice()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bakugan_items SET current_price").
		WithArgs(p.Price, p.CreatedAt, p.ItemID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO bakugan_price_points").
		WithArgs(p.ID, p.ItemID, p.Price, p.Timestamp, p.Notes, p.ReferenceURI, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Record(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepository_RecordUnknownItem(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceRepository(mock)
	p := samplePrice()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bakugan_items SET current_price").
		WithArgs(p.Price, p.CreatedAt, p.ItemID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Record(context.Background(), p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepository_RecordInsertFails(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceRepository(mock)
	p := samplePrice()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bakugan_items SET current_price").
		WithArgs(p.Price, p.CreatedAt, p.ItemID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO bakugan_price_points").
		WithArgs(p.ID, p.ItemID, p.Price, p.Timestamp, p.Notes, p.ReferenceURI, p.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Record(context.Background(), p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepository_ListByItem(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceRepository(mock)
	p := samplePrice()

	mock.ExpectQuery("FROM bakugan_price_points").
		WithArgs(p.ItemID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "bakugan_id", "price", "timestamp", "notes", "reference_uri", "created_at"}).
			AddRow(p.ID, p.ItemID, p.Price, p.Timestamp, p.Notes, p.ReferenceURI, p.CreatedAt))

	points, err := repo.ListByItem(context.Background(), p.ItemID)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, *p, points[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepository_ListByItemEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceRepository(mock)

	mock.ExpectQuery("FROM bakugan_price_points").
		WithArgs("item").
		WillReturnRows(pgxmock.NewRows([]string{"id", "bakugan_id", "price", "timestamp", "notes", "reference_uri", "created_at"}))

	points, err := repo.ListByItem(context.Background(), "item")
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestPriceRepository_DeleteNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPriceRepository(mock)

	mock.ExpectExec("DELETE FROM bakugan_price_points").
		WithArgs("price", "item").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "item", "price")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
