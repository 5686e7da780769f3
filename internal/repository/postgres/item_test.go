package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

var itemColumnNames = []string{
	"id", "names", "size", "element", "special_properties", "series", "image_url",
	"current_price", "reference_uri", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleItem() *domain.CatalogItem {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.CatalogItem{
		ID:                "3f0c3b7e-4a4e-4b8e-9c57-6d1e6f3d2a10",
		Names:             []string{"Dragonoid", "Drago"},
		Size:              "B2",
		Element:           "Pyrus",
		SpecialProperties: "Normal",
		ImageURL:          "https://img.example/drago.png",
		CurrentPrice:      1500,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestItemRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	item := sampleItem()

	mock.ExpectExec("INSERT INTO bakugan_items").
		WithArgs(item.ID, item.Names, item.Size, item.Element, item.SpecialProperties, item.Series,
			item.ImageURL, item.CurrentPrice, item.ReferenceURI, item.CreatedAt, item.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)

	mock.ExpectExec("INSERT INTO bakugan_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), sampleItem())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestItemRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	want := sampleItem()

	mock.ExpectQuery("SELECT .+ FROM bakugan_items WHERE id").
		WithArgs(want.ID).
		WillReturnRows(pgxmock.NewRows(itemColumnNames).AddRow(
			want.ID, want.Names, want.Size, want.Element, want.SpecialProperties, want.Series,
			want.ImageURL, want.CurrentPrice, want.ReferenceURI, want.CreatedAt, want.UpdatedAt,
		))

	got, err := repo.GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM bakugan_items WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestItemRepository_SearchBuildsConditions(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	item := sampleItem()
	minPrice, maxPrice := 1000.0, 2000.0

	q := domain.SearchQuery{
		Search:      "dra",
		ExcludeSize: "B3",
		Element:     "Pyrus",
		MinPrice:    &minPrice,
		MaxPrice:    &maxPrice,
	}

	cols := append(append([]string{}, itemColumnNames...), "total_count")
	mock.ExpectQuery(`EXISTS \(SELECT 1 FROM unnest\(names\).+size <> \$2 AND element = \$3 AND current_price >= \$4 AND current_price <= \$5.+LIMIT \$6 OFFSET \$7`).
		WithArgs("%dra%", "B3", "Pyrus", minPrice, maxPrice, 20, 0).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			item.ID, item.Names, item.Size, item.Element, item.SpecialProperties, item.Series,
			item.ImageURL, item.CurrentPrice, item.ReferenceURI, item.CreatedAt, item.UpdatedAt, 1,
		))

	items, total, err := repo.Search(context.Background(), q, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, item.Names, items[0].Names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_SearchPastLastPageCounts(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)

	cols := append(append([]string{}, itemColumnNames...), "total_count")
	mock.ExpectQuery("FROM bakugan_items").
		WithArgs("B3", 20, 40).
		WillReturnRows(pgxmock.NewRows(cols))
	mock.ExpectQuery(`SELECT count\(\*\) FROM bakugan_items WHERE size = \$1`).
		WithArgs("B3").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	page := pagination.Params{Page: 3, Limit: 20}
	items, total, err := repo.Search(context.Background(), domain.SearchQuery{Bakutech: true}, page)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_UpdateNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	item := sampleItem()

	mock.ExpectExec("UPDATE bakugan_items").
		WithArgs(item.Names, item.Size, item.Element, item.SpecialProperties, item.Series,
			item.ImageURL, item.CurrentPrice, item.ReferenceURI, pgxmock.AnyArg(), item.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), item)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)

	mock.ExpectExec("DELETE FROM bakugan_items").
		WithArgs("id-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM bakugan_items").
		WithArgs("id-2").
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.Delete(context.Background(), "id-1"))
	err := repo.Delete(context.Background(), "id-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
}
