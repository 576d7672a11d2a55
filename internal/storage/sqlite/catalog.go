package sqlite

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
)

var _ catalog.Writer = (*CatalogWriter)(nil)

// CatalogWriter inserts catalog rows with ON CONFLICT DO NOTHING.
type CatalogWriter struct {
	db *gorm.DB
}

// NewCatalogWriter returns a CatalogWriter using db.
func NewCatalogWriter(db *DB) *CatalogWriter {
	return &CatalogWriter{db: db.gorm}
}

func (w *CatalogWriter) EnsureShop(ctx context.Context, s flower.Shop) (bool, error) {
	return w.insert(ctx, &shopModel{ID: s.ID, Name: s.Name, Category: s.Category})
}

func (w *CatalogWriter) EnsureFlower(ctx context.Context, f flower.Flower) (bool, error) {
	return w.insert(ctx, &flowerModel{
		ID:          f.ID,
		Name:        f.Name,
		Price:       f.Price,
		Image:       f.Image,
		Description: f.Description,
		ShopID:      f.ShopID,
		IsFavorite:  f.IsFavorite,
		DateAdded:   f.DateAdded,
	})
}

func (w *CatalogWriter) EnsureCoupon(ctx context.Context, c coupon.Coupon) (bool, error) {
	return w.insert(ctx, &couponModel{
		ID:             c.ID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		Discount:       c.Discount,
		IsActive:       c.Active,
		ExpiryDate:     c.ExpiresAt,
		MinOrderAmount: c.MinOrderAmount,
	})
}

func (w *CatalogWriter) insert(ctx context.Context, v any) (bool, error) {
	res := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(v)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
