package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
)

const discountColumns = `id, name, description, discount_percentage, start_date, end_date, is_active,
	apply_to_all_products, applicable_products, featured_image, created_by, created_at, updated_at`

const (
	insertDiscountSQL = `INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateDiscountSQL = `UPDATE discounts SET
			name = $2, description = $3, discount_percentage = $4, start_date = $5, end_date = $6,
			is_active = $7, apply_to_all_products = $8, applicable_products = $9, featured_image = $10,
			updated_at = $11
		WHERE id = $1`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`

	getDiscountSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	listDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at DESC, id`

	listLiveDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE is_active AND end_date >= $1
		ORDER BY discount_percentage DESC, id`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Create inserts a new discount.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	_, err := r.pool.Exec(ctx, insertDiscountSQL,
		d.ID, d.Name, d.Description, d.Percentage, d.StartDate, d.EndDate, d.IsActive,
		d.ApplyToAllProducts, nonNil(d.ApplicableProducts), d.FeaturedImage, d.CreatedBy,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// Update overwrites the mutable fields of a discount.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL,
		d.ID, d.Name, d.Description, d.Percentage, d.StartDate, d.EndDate, d.IsActive,
		d.ApplyToAllProducts, nonNil(d.ApplicableProducts), d.FeaturedImage, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating discount %q: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Delete removes a discount permanently.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return fmt.Errorf("deleting discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// GetByID returns a single discount.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}
	return &d, nil
}

// List returns all discounts, newest first.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// ListLive returns enabled discounts that have not ended at now.
func (r *DiscountRepository) ListLive(ctx context.Context, now time.Time) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listLiveDiscountsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing live discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var d discount.Discount
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &d.Percentage, &d.StartDate, &d.EndDate, &d.IsActive,
		&d.ApplyToAllProducts, &d.ApplicableProducts, &d.FeaturedImage, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
