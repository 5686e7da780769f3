package postgres

import (
	"context"
	"fmt"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
)

// PriceRepository implements repository.PriceRepository using PostgreSQL.
type PriceRepository struct {
	db database.DBTX
}

// NewPriceRepository creates a PostgreSQL-backed price history repository.
func NewPriceRepository(db database.DBTX) *PriceRepository {
	return &PriceRepository{db: db}
}

// Record appends a price point and updates the item's current price in one
// transaction.
func (r *PriceRepository) Record(ctx context.Context, p *domain.PricePoint) (err error) {
	ctx, end := database.TraceQuery(ctx, "RecordPrice", "UPDATE bakugan_items ...; INSERT INTO bakugan_price_points ...")
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record price: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ct, err := tx.Exec(ctx,
		`UPDATE bakugan_items SET current_price = $1, updated_at = $2 WHERE id = $3`,
		p.Price, p.CreatedAt, p.ItemID,
	)
	if err != nil {
		return fmt.Errorf("update current price: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("bakugan", p.ItemID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bakugan_price_points (id, bakugan_id, price, timestamp, notes, reference_uri, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ItemID, p.Price, p.Timestamp, p.Notes, p.ReferenceURI, p.CreatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == codeForeignKeyViolation {
			return apperrors.NotFound("bakugan", p.ItemID)
		}
		return fmt.Errorf("insert price point: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record price: %w", err)
	}
	return nil
}

// ListByItem returns the price history for one item.
func (r *PriceRepository) ListByItem(ctx context.Context, itemID string) (points []domain.PricePoint, err error) {
	query := `
		SELECT id, bakugan_id, price, timestamp, notes, reference_uri, created_at
		FROM bakugan_price_points
		WHERE bakugan_id = $1
		ORDER BY timestamp, created_at`

	ctx, end := database.TraceQuery(ctx, "ListPrices", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list price points: %w", err)
	}
	defer rows.Close()

	points = []domain.PricePoint{}
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ID, &p.ItemID, &p.Price, &p.Timestamp, &p.Notes, &p.ReferenceURI, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}
	return points, nil
}

// Delete removes one price point.
func (r *PriceRepository) Delete(ctx context.Context, itemID, priceID string) (err error) {
	query := `DELETE FROM bakugan_price_points WHERE id = $1 AND bakugan_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeletePrice", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, priceID, itemID)
	if err != nil {
		return fmt.Errorf("delete price point: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("price point", priceID)
	}
	return nil
}
