package catalog

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
)

// Writer inserts catalog rows that do not exist yet. Each method reports
// whether a row was inserted; existing rows are left untouched.
type Writer interface {
	EnsureShop(ctx context.Context, s flower.Shop) (bool, error)
	EnsureFlower(ctx context.Context, f flower.Flower) (bool, error)
	EnsureCoupon(ctx context.Context, c coupon.Coupon) (bool, error)
}

// Result counts inserted rows.
type Result struct {
	Shops   int
	Flowers int
	Coupons int
}

// Seed writes data through w. It is idempotent: favorites and prices of
// rows already present are never overwritten.
func Seed(ctx context.Context, w Writer, data *Data) (Result, error) {
	var res Result
	for _, s := range data.Shops {
		ok, err := w.EnsureShop(ctx, s)
		if err != nil {
			return res, errors.Wrapf(err, "shop %s", s.ID)
		}
		if ok {
			res.Shops++
		}
	}
	for _, f := range data.Flowers {
		ok, err := w.EnsureFlower(ctx, f)
		if err != nil {
			return res, errors.Wrapf(err, "flower %s", f.ID)
		}
		if ok {
			res.Flowers++
		}
	}
	for _, c := range data.Coupons {
		ok, err := w.EnsureCoupon(ctx, c)
		if err != nil {
			return res, errors.Wrapf(err, "coupon %s", c.Code)
		}
		if ok {
			res.Coupons++
		}
	}
	return res, nil
}
