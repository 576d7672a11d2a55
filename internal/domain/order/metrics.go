package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	placed   metric.Int64Counter
	revenue  metric.Float64Counter
	discount metric.Float64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	placed, err := m.Int64Counter("flowershop.orders.placed",
		metric.WithDescription("Number of committed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	revenue, err := m.Float64Counter("flowershop.orders.revenue",
		metric.WithDescription("Sum of committed order totals"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.revenue")
	}
	discount, err := m.Float64Counter("flowershop.orders.discount",
		metric.WithDescription("Sum of coupon discounts granted"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.discount")
	}
	return &metrics{placed: placed, revenue: revenue, discount: discount}, nil
}

func (m *metrics) recordPlaced(ctx context.Context, o *Order) {
	attrs := metric.WithAttributes(attribute.Bool("order.coupons", len(o.CouponCodes) > 0))
	m.placed.Add(ctx, 1, attrs)
	m.revenue.Add(ctx, o.Total.InexactFloat64(), attrs)
	m.discount.Add(ctx, o.Discount.InexactFloat64(), attrs)
}
