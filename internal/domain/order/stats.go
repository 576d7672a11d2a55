package order

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const topFlowersLimit = 5

// Stats summarises committed orders for the analytics dashboard.
type Stats struct {
	Orders            int
	Revenue           decimal.Decimal
	Discounts         decimal.Decimal
	AverageOrderValue decimal.Decimal
	TopFlowers        []FlowerSales
}

// FlowerSales aggregates the sold quantity and revenue of one flower.
type FlowerSales struct {
	FlowerID string
	Quantity int
	Revenue  decimal.Decimal
}

// Stats computes analytics over all committed orders.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return Summarize(orders), nil
}

// Summarize aggregates orders into Stats. Revenue is the sum of order
// totals, line revenue uses the frozen line prices.
func Summarize(orders []Order) *Stats {
	st := &Stats{
		Orders:            len(orders),
		Revenue:           decimal.Zero,
		Discounts:         decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}

	byFlower := make(map[string]*FlowerSales)
	for _, o := range orders {
		st.Revenue = st.Revenue.Add(o.Total)
		st.Discounts = st.Discounts.Add(o.Discount)
		for _, it := range o.Items {
			fs, ok := byFlower[it.FlowerID]
			if !ok {
				fs = &FlowerSales{FlowerID: it.FlowerID, Revenue: decimal.Zero}
				byFlower[it.FlowerID] = fs
			}
			fs.Quantity += it.Quantity
			fs.Revenue = fs.Revenue.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	if len(orders) > 0 {
		st.AverageOrderValue = st.Revenue.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}

	top := make([]FlowerSales, 0, len(byFlower))
	for _, fs := range byFlower {
		top = append(top, *fs)
	}
	slices.SortFunc(top, func(a, b FlowerSales) int {
		if a.Quantity != b.Quantity {
			return b.Quantity - a.Quantity
		}
		return strings.Compare(a.FlowerID, b.FlowerID)
	})
	if len(top) > topFlowersLimit {
		top = top[:topFlowersLimit]
	}
	st.TopFlowers = top

	return st
}
