package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/flowershop/internal/domain/coupon"
)

// Reason explains why a coupon cannot be applied.
type Reason string

const (
	ReasonUnknownCode    Reason = "unknown_code"
	ReasonInactive       Reason = "inactive"
	ReasonExpired        Reason = "expired"
	ReasonBelowMinimum   Reason = "below_minimum"
	ReasonAlreadyApplied Reason = "already_applied"
)

// Ineligible is the outcome of a rejected coupon application.
type Ineligible struct {
	Code   string
	Reason Reason
	// MinOrderAmount is set for ReasonBelowMinimum.
	MinOrderAmount decimal.Decimal
}

// Message returns a customer-facing description of the rejection.
func (i *Ineligible) Message() string {
	switch i.Reason {
	case ReasonUnknownCode:
		return fmt.Sprintf("coupon %s does not exist", i.Code)
	case ReasonInactive:
		return fmt.Sprintf("coupon %s is not active", i.Code)
	case ReasonExpired:
		return fmt.Sprintf("coupon %s has expired", i.Code)
	case ReasonBelowMinimum:
		return fmt.Sprintf("minimum order amount for %s is $%s", i.Code, i.MinOrderAmount.StringFixed(2))
	case ReasonAlreadyApplied:
		return fmt.Sprintf("coupon %s is already applied", i.Code)
	default:
		return fmt.Sprintf("coupon %s cannot be applied", i.Code)
	}
}

// Evaluate checks c against the pre-discount subtotal at instant now. It
// returns nil when the coupon is eligible.
func Evaluate(c coupon.Coupon, subtotal decimal.Decimal, now time.Time) *Ineligible {
	switch {
	case !c.Active:
		return &Ineligible{Code: c.Code, Reason: ReasonInactive}
	case now.After(c.ExpiresAt):
		return &Ineligible{Code: c.Code, Reason: ReasonExpired}
	case c.MinOrderAmount.Valid && subtotal.LessThan(c.MinOrderAmount.Decimal):
		return &Ineligible{
			Code:           c.Code,
			Reason:         ReasonBelowMinimum,
			MinOrderAmount: c.MinOrderAmount.Decimal,
		}
	}
	return nil
}

// EvaluateApply checks c for application on top of the already applied
// coupons. Duplicates are detected by ID, falling back to the code when IDs
// are empty.
func EvaluateApply(c coupon.Coupon, applied []coupon.Coupon, subtotal decimal.Decimal, now time.Time) *Ineligible {
	for _, a := range applied {
		if sameCoupon(a, c) {
			return &Ineligible{Code: c.Code, Reason: ReasonAlreadyApplied}
		}
	}
	return Evaluate(c, subtotal, now)
}

func sameCoupon(a, b coupon.Coupon) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return strings.EqualFold(a.Code, b.Code)
}
