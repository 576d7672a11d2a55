package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no coupon matches a code.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a percentage discount rule.
type Coupon struct {
	ID          string
	Code        string
	Name        string
	Description string
	// Discount is a percentage in the range 0..100.
	Discount decimal.Decimal
	Active   bool
	// ExpiresAt is the last instant the coupon may be applied.
	ExpiresAt time.Time
	// MinOrderAmount is the pre-discount subtotal threshold, when set.
	MinOrderAmount decimal.NullDecimal
}

// Repository provides coupon lookups.
type Repository interface {
	// List returns every coupon ordered by code.
	List(ctx context.Context) ([]Coupon, error)
	// FindByCode matches code case-insensitively. It returns ErrNotFound
	// when nothing matches.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
