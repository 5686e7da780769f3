package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	apperrors "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/errors"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/database"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/pagination"
)

const itemColumns = `id, names, size, element, special_properties, series, image_url, current_price, reference_uri, created_at, updated_at`

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	db database.DBTX
}

// NewItemRepository creates a PostgreSQL-backed item repository.
func NewItemRepository(db database.DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item.
func (r *ItemRepository) Create(ctx context.Context, item *domain.CatalogItem) (err error) {
	query := `
		INSERT INTO bakugan_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ctx, end := database.TraceQuery(ctx, "CreateItem", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		item.ID,
		item.Names,
		item.Size,
		item.Element,
		item.SpecialProperties,
		item.Series,
		item.ImageURL,
		item.CurrentPrice,
		item.ReferenceURI,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return apperrors.AlreadyExists("bakugan", "id", item.ID)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID retrieves an item by its ID.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (item *domain.CatalogItem, err error) {
	query := `SELECT ` + itemColumns + ` FROM bakugan_items WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetItem", query)
	defer func() { end(err) }()

	item = &domain.CatalogItem{}
	err = r.db.QueryRow(ctx, query, id).Scan(itemFields(item)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("bakugan", id)
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return item, nil
}

// Search returns one page of matching items, newest first.
func (r *ItemRepository) Search(ctx context.Context, q domain.SearchQuery, page pagination.Params) (items []domain.CatalogItem, total int, err error) {
	where, args := searchConditions(q)
	argIndex := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM bakugan_items
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		itemColumns, where, argIndex, argIndex+1,
	)
	page = page.Normalize()
	args = append(args, page.Limit, page.Offset)

	ctx, end := database.TraceQuery(ctx, "SearchItems", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	items = []domain.CatalogItem{}
	for rows.Next() {
		var item domain.CatalogItem
		if err := rows.Scan(append(itemFields(&item), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate item rows: %w", err)
	}

	// count(*) OVER() is only observable when the page has rows.
	if len(items) == 0 && page.Offset > 0 {
		countQuery := "SELECT count(*) FROM bakugan_items " + where
		if err := r.db.QueryRow(ctx, countQuery, args[:argIndex-1]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count items: %w", err)
		}
	}

	return items, total, nil
}

// Update overwrites the mutable fields of an item.
func (r *ItemRepository) Update(ctx context.Context, item *domain.CatalogItem) (err error) {
	item.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE bakugan_items
		SET names = $1, size = $2, element = $3, special_properties = $4, series = $5,
		    image_url = $6, current_price = $7, reference_uri = $8, updated_at = $9
		WHERE id = $10`

	ctx, end := database.TraceQuery(ctx, "UpdateItem", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		item.Names,
		item.Size,
		item.Element,
		item.SpecialProperties,
		item.Series,
		item.ImageURL,
		item.CurrentPrice,
		item.ReferenceURI,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("bakugan", item.ID)
	}
	return nil
}

// Delete removes an item. Price points go with it via ON DELETE CASCADE.
func (r *ItemRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM bakugan_items WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteItem", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("bakugan", id)
	}
	return nil
}

// searchConditions renders q as a WHERE clause with positional arguments.
func searchConditions(q domain.SearchQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(format string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if q.Search != "" {
		add("EXISTS (SELECT 1 FROM unnest(names) AS n WHERE n ILIKE $%d)", "%"+escapeLike(q.Search)+"%")
	}
	if q.Size != "" {
		add("size = $%d", q.Size)
	}
	if q.Bakutech {
		add("size = $%d", domain.SizeB3)
	}
	if q.ExcludeSize != "" {
		add("size <> $%d", q.ExcludeSize)
	}
	if q.Element != "" {
		add("element = $%d", q.Element)
	}
	if q.SpecialProperties != "" {
		add("special_properties = $%d", q.SpecialProperties)
	}
	if q.MinPrice != nil {
		add("current_price >= $%d", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		add("current_price <= $%d", *q.MaxPrice)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func itemFields(item *domain.CatalogItem) []any {
	return []any{
		&item.ID,
		&item.Names,
		&item.Size,
		&item.Element,
		&item.SpecialProperties,
		&item.Series,
		&item.ImageURL,
		&item.CurrentPrice,
		&item.ReferenceURI,
		&item.CreatedAt,
		&item.UpdatedAt,
	}
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
