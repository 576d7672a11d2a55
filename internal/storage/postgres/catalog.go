package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
)

const (
	ensureShopSQL = `INSERT INTO shops (id, name, category) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`

	ensureFlowerSQL = `INSERT INTO flowers
		(id, name, price, image, description, shop_id, is_favorite, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING`

	ensureCouponSQL = `INSERT INTO coupons
		(id, code, name, description, discount, is_active, expiry_date, min_order_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING`
)

var _ catalog.Writer = (*CatalogWriter)(nil)

// CatalogWriter inserts catalog rows, skipping those already present.
type CatalogWriter struct {
	pool *pgxpool.Pool
}

// NewCatalogWriter returns a CatalogWriter that uses the given pool.
func NewCatalogWriter(pool *pgxpool.Pool) *CatalogWriter {
	return &CatalogWriter{pool: pool}
}

func (w *CatalogWriter) EnsureShop(ctx context.Context, s flower.Shop) (bool, error) {
	tag, err := w.pool.Exec(ctx, ensureShopSQL, s.ID, s.Name, s.Category)
	if err != nil {
		return false, fmt.Errorf("inserting shop %q: %w", s.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (w *CatalogWriter) EnsureFlower(ctx context.Context, f flower.Flower) (bool, error) {
	tag, err := w.pool.Exec(ctx, ensureFlowerSQL,
		f.ID, f.Name, f.Price, f.Image, f.Description, f.ShopID, f.IsFavorite, f.DateAdded,
	)
	if err != nil {
		return false, fmt.Errorf("inserting flower %q: %w", f.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (w *CatalogWriter) EnsureCoupon(ctx context.Context, c coupon.Coupon) (bool, error) {
	tag, err := w.pool.Exec(ctx, ensureCouponSQL,
		c.ID, c.Code, c.Name, c.Description, c.Discount, c.Active, c.ExpiresAt, c.MinOrderAmount,
	)
	if err != nil {
		return false, fmt.Errorf("inserting coupon %q: %w", c.Code, err)
	}
	return tag.RowsAffected() > 0, nil
}
