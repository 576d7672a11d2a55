package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/flowershop/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository on SQLite.
type CouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository returns a CouponRepository using db.
func NewCouponRepository(db *DB) *CouponRepository {
	return &CouponRepository{db: db.gorm}
}

// List returns all coupons ordered by code.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	var rows []couponModel
	if err := r.db.WithContext(ctx).Order("code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	out := make([]coupon.Coupon, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

// FindByCode returns the coupon whose code matches case-insensitively.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var m couponModel
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = UPPER(?)", strings.TrimSpace(code)).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	c := m.toDomain()
	return &c, nil
}
