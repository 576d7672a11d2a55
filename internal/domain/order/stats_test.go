package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Empty(t *testing.T) {
	st := Summarize(nil)
	assert.Zero(t, st.Orders)
	assert.True(t, st.Revenue.IsZero())
	assert.True(t, st.AverageOrderValue.IsZero())
	assert.Empty(t, st.TopFlowers)
}

func TestSummarize(t *testing.T) {
	orders := []Order{
		{
			Items: []LineItem{
				{FlowerID: "1", Quantity: 2, Price: d("45")},
				{FlowerID: "2", Quantity: 1, Price: d("38")},
			},
			Subtotal: d("128"),
			Discount: d("12.80"),
			Total:    d("115.20"),
		},
		{
			Items: []LineItem{
				{FlowerID: "2", Quantity: 3, Price: d("40")},
			},
			Subtotal: d("120"),
			Discount: d("0"),
			Total:    d("120"),
		},
	}

	st := Summarize(orders)
	assert.Equal(t, 2, st.Orders)
	assert.Equal(t, "235.20", st.Revenue.StringFixed(2))
	assert.Equal(t, "12.80", st.Discounts.StringFixed(2))
	assert.Equal(t, "117.60", st.AverageOrderValue.StringFixed(2))

	require.Len(t, st.TopFlowers, 2)
	assert.Equal(t, "2", st.TopFlowers[0].FlowerID)
	assert.Equal(t, 4, st.TopFlowers[0].Quantity)
	// Frozen line prices: 38 + 3*40.
	assert.Equal(t, "158.00", st.TopFlowers[0].Revenue.StringFixed(2))
	assert.Equal(t, "1", st.TopFlowers[1].FlowerID)
}

func TestSummarize_TopFlowersLimit(t *testing.T) {
	var items []LineItem
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		items = append(items, LineItem{FlowerID: id, Quantity: i + 1, Price: d("1")})
	}
	st := Summarize([]Order{{Items: items, Total: d("28")}})

	require.Len(t, st.TopFlowers, topFlowersLimit)
	assert.Equal(t, "g", st.TopFlowers[0].FlowerID)
	assert.Equal(t, "c", st.TopFlowers[4].FlowerID)
}

func TestService_Stats(t *testing.T) {
	svc := newTestService(t, catalog(), &mockCouponRepo{}, &mockOrderRepo{})

	_, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "1", Quantity: 3}))
	require.NoError(t, err)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Orders)
	assert.Equal(t, "135.00", st.Revenue.StringFixed(2))
}
