package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/flowershop/internal/pricing"
)

// Sentinel errors for matching with errors.Is.
var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownFlower  = errors.New("unknown flower")
	ErrTransient      = errors.New("transient storage failure")
)

// InvalidPayloadError reports a malformed or incomplete order request.
type InvalidPayloadError struct {
	Field  string
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

func (e *InvalidPayloadError) Is(target error) bool { return target == ErrInvalidPayload }

// UnknownFlowerError indicates a requested flower does not exist.
type UnknownFlowerError struct {
	FlowerID string
}

func (e *UnknownFlowerError) Error() string {
	return fmt.Sprintf("flower not found: %s", e.FlowerID)
}

func (e *UnknownFlowerError) Is(target error) bool { return target == ErrUnknownFlower }

// CouponIneligibleError rejects a submission carrying a coupon that cannot
// be applied.
type CouponIneligibleError struct {
	*pricing.Ineligible
}

func (e *CouponIneligibleError) Error() string {
	return e.Message()
}

// TransientError wraps a storage failure. Nothing was committed, so the
// whole submission may be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }
