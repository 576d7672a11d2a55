// Package events publishes order lifecycle events.
package events

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/flowershop/internal/domain/order"
)

// DefaultTopic receives order events unless configured otherwise.
const DefaultTopic = "flowershop.orders"

// TypeOrderPlaced is the event type emitted after an order commits.
const TypeOrderPlaced = "order.placed"

// EncodeOrderPlaced renders the order.placed payload.
func EncodeOrderPlaced(o order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(TypeOrderPlaced) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(o.Customer.Name) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Raw([]byte(o.Subtotal.StringFixed(2))) })
		e.Field("discount", func(e *jx.Encoder) { e.Raw([]byte(o.Discount.StringFixed(2))) })
		e.Field("total", func(e *jx.Encoder) { e.Raw([]byte(o.Total.StringFixed(2))) })
		e.Field("coupon_codes", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range o.CouponCodes {
					e.Str(c)
				}
			})
		})
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("flower_id", func(e *jx.Encoder) { e.Str(it.FlowerID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { e.Raw([]byte(it.Price.StringFixed(2))) })
					})
				}
			})
		})
	})

	return append([]byte(nil), e.Bytes()...)
}
