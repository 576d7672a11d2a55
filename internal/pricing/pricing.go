// Package pricing computes cart subtotals, coupon eligibility and stacked
// coupon discounts. All functions are pure.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/flowershop/internal/domain/coupon"
)

var hundred = decimal.NewFromInt(100)

// Line is a priced cart line.
type Line struct {
	FlowerID string
	Price    decimal.Decimal
	Quantity int
}

// Breakdown holds the amounts shown to a customer before checkout.
type Breakdown struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal returns the sum of price * quantity over lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Discount sums the percentage discounts of applied coupons. Every coupon is
// taken against the same pre-discount subtotal; discounts do not compound.
func Discount(applied []coupon.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range applied {
		sum = sum.Add(subtotal.Mul(c.Discount).Div(hundred))
	}
	return sum
}

// Total returns subtotal - discount. The result is not clamped and goes
// negative when the applied percentages exceed 100 in total.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount)
}

// RoundedDiscount is Discount rounded to cents. Totals are computed from
// this value, never from the unrounded discount.
func RoundedDiscount(applied []coupon.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	return Discount(applied, subtotal).Round(2)
}

// Quote computes the full breakdown for lines and applied coupons in cents,
// the same way an order is priced on submission.
func Quote(lines []Line, applied []coupon.Coupon) Breakdown {
	subtotal := Subtotal(lines).Round(2)
	discount := RoundedDiscount(applied, subtotal)
	return Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Total:    Total(subtotal, discount),
	}
}

// MatchCode finds the coupon whose code equals code, ignoring case and
// surrounding whitespace.
func MatchCode(coupons []coupon.Coupon, code string) (coupon.Coupon, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return coupon.Coupon{}, false
	}
	for _, c := range coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return coupon.Coupon{}, false
}
