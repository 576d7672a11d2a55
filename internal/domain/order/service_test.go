package order

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/pricing"
)

// --- Mock implementations ---

type mockFlowerRepo struct {
	byID   map[string]flower.Flower
	getErr error
	calls  int
}

func (m *mockFlowerRepo) ListShops(_ context.Context) ([]flower.Shop, error) {
	return nil, nil
}

func (m *mockFlowerRepo) List(_ context.Context, _ flower.Filter) ([]flower.Flower, error) {
	return nil, nil
}

func (m *mockFlowerRepo) GetByIDs(_ context.Context, ids []string) ([]flower.Flower, error) {
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []flower.Flower
	for _, id := range ids {
		if f, ok := m.byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFlowerRepo) ToggleFavorite(_ context.Context, _ string) (*flower.Flower, error) {
	return nil, flower.ErrNotFound
}

type mockCouponRepo struct {
	coupons []coupon.Coupon
	findErr error
}

func (m *mockCouponRepo) List(_ context.Context) ([]coupon.Coupon, error) {
	return m.coupons, nil
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := pricing.MatchCode(m.coupons, code)
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

type mockOrderRepo struct {
	created []*Order
	err     error
}

func (m *mockOrderRepo) Create(ctx context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("commit without deadline")
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	out := make([]Order, 0, len(m.created))
	for i := len(m.created) - 1; i >= 0; i-- {
		out = append(out, *m.created[i])
	}
	return out, nil
}

type mockPublisher struct {
	events []Order
	err    error
}

func (m *mockPublisher) OrderPlaced(_ context.Context, o Order) error {
	m.events = append(m.events, o)
	return m.err
}

// --- Helpers ---

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFlowerRepo(flowers ...flower.Flower) *mockFlowerRepo {
	byID := make(map[string]flower.Flower, len(flowers))
	for _, f := range flowers {
		byID[f.ID] = f
	}
	return &mockFlowerRepo{byID: byID}
}

func catalog() *mockFlowerRepo {
	return newFlowerRepo(
		flower.Flower{ID: "1", Name: "Red Rose Bouquet", Price: d("45"), ShopID: "1"},
		flower.Flower{ID: "2", Name: "White Lily Arrangement", Price: d("38"), ShopID: "1"},
	)
}

func spring20() coupon.Coupon {
	return coupon.Coupon{
		ID:             "1",
		Code:           "SPRING20",
		Discount:       d("20"),
		Active:         true,
		ExpiresAt:      time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
		MinOrderAmount: decimal.NewNullDecimal(d("30")),
	}
}

func welcome10() coupon.Coupon {
	return coupon.Coupon{
		ID:        "2",
		Code:      "WELCOME10",
		Discount:  d("10"),
		Active:    true,
		ExpiresAt: time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
	}
}

func newTestService(t *testing.T, flowers flower.Repository, coupons coupon.Repository, orders Repository, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := NewService(flowers, coupons, orders, opts...)
	require.NoError(t, err)
	return svc
}

func validRequest(items ...ItemRequest) Request {
	return Request{
		Customer: Customer{
			Name:    "Ada Lovelace",
			Email:   "ada@example.com",
			Phone:   "+1 555 0100",
			Address: "12 Garden Lane",
		},
		Items: items,
	}
}

// --- Tests ---

func TestSubmit_InvalidPayload(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{
			name:  "empty items",
			req:   validRequest(),
			field: "items",
		},
		{
			name: "missing name",
			req: func() Request {
				r := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})
				r.Customer.Name = "   "
				return r
			}(),
			field: "customer_name",
		},
		{
			name: "missing address",
			req: func() Request {
				r := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})
				r.Customer.Address = ""
				return r
			}(),
			field: "address",
		},
		{
			name: "bad email",
			req: func() Request {
				r := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})
				r.Customer.Email = "not-an-email"
				return r
			}(),
			field: "email",
		},
		{
			name:  "zero quantity",
			req:   validRequest(ItemRequest{FlowerID: "1", Quantity: 0}),
			field: "items.quantity",
		},
		{
			name:  "negative quantity",
			req:   validRequest(ItemRequest{FlowerID: "1", Quantity: -2}),
			field: "items.quantity",
		},
		{
			name:  "empty flower id",
			req:   validRequest(ItemRequest{FlowerID: "", Quantity: 1}),
			field: "items.flower_id",
		},
		{
			name: "blank coupon code",
			req: func() Request {
				r := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})
				r.CouponCodes = []string{" "}
				return r
			}(),
			field: "coupon_codes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flowers := catalog()
			orders := &mockOrderRepo{}
			svc := newTestService(t, flowers, &mockCouponRepo{}, orders)

			_, err := svc.Submit(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidPayload)

			var ipErr *InvalidPayloadError
			require.ErrorAs(t, err, &ipErr)
			assert.Equal(t, tt.field, ipErr.Field)

			assert.Zero(t, flowers.calls, "catalog must not be read for invalid payloads")
			assert.Empty(t, orders.created)
		})
	}
}

func TestSubmit_UnknownFlower(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, catalog(), &mockCouponRepo{}, orders)

	_, err := svc.Submit(context.Background(), validRequest(
		ItemRequest{FlowerID: "1", Quantity: 1},
		ItemRequest{FlowerID: "999", Quantity: 1},
	))

	require.ErrorIs(t, err, ErrUnknownFlower)
	var ufErr *UnknownFlowerError
	require.ErrorAs(t, err, &ufErr)
	assert.Equal(t, "999", ufErr.FlowerID)
	assert.Equal(t, "flower not found: 999", err.Error())
	assert.Empty(t, orders.created)
}

func TestSubmit_TrimsFlowerIDs(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, catalog(), &mockCouponRepo{}, orders)

	o, err := svc.Submit(context.Background(), validRequest(
		ItemRequest{FlowerID: " 1 ", Quantity: 1},
		ItemRequest{FlowerID: "1", Quantity: 2},
		ItemRequest{FlowerID: "\t2", Quantity: 1},
	))
	require.NoError(t, err)

	require.Len(t, o.Items, 3)
	assert.Equal(t, "1", o.Items[0].FlowerID)
	assert.Equal(t, "1", o.Items[1].FlowerID)
	assert.Equal(t, "2", o.Items[2].FlowerID)
	assert.True(t, d("173").Equal(o.Subtotal), "got %s", o.Subtotal)

	_, err = svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: " 999 ", Quantity: 1}))
	assert.EqualError(t, err, "flower not found: 999")
}

func TestSubmit_RepricesFromCatalog(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, catalog(), &mockCouponRepo{}, orders)

	o, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "1", Quantity: 3}))
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "1", o.Items[0].FlowerID)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.True(t, d("45").Equal(o.Items[0].Price))
	assert.True(t, d("135").Equal(o.Subtotal))
	assert.True(t, decimal.Zero.Equal(o.Discount))
	assert.True(t, d("135").Equal(o.Total))
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.NotEmpty(t, o.ID)

	require.Len(t, orders.created, 1)
	assert.Same(t, o, orders.created[0])
}

func TestSubmit_PreservesLineOrderAndDuplicates(t *testing.T) {
	flowers := catalog()
	svc := newTestService(t, flowers, &mockCouponRepo{}, &mockOrderRepo{})

	o, err := svc.Submit(context.Background(), validRequest(
		ItemRequest{FlowerID: "2", Quantity: 1},
		ItemRequest{FlowerID: "1", Quantity: 2},
		ItemRequest{FlowerID: "2", Quantity: 1},
	))
	require.NoError(t, err)

	require.Len(t, o.Items, 3)
	assert.Equal(t, []string{"2", "1", "2"}, []string{o.Items[0].FlowerID, o.Items[1].FlowerID, o.Items[2].FlowerID})
	// 38 + 90 + 38
	assert.True(t, d("166").Equal(o.Total))
	assert.Equal(t, 1, flowers.calls, "flowers must be fetched in one batch")
}

func TestSubmit_TrimsCustomer(t *testing.T) {
	svc := newTestService(t, catalog(), &mockCouponRepo{}, &mockOrderRepo{})

	req := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})
	req.Customer.Name = "  Ada  "
	req.Customer.Address = "\t12 Garden Lane\n"

	o, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Ada", o.Customer.Name)
	assert.Equal(t, "12 Garden Lane", o.Customer.Address)
}

func TestSubmit_RepeatCreatesDistinctOrders(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(t, catalog(), &mockCouponRepo{}, orders)
	req := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})

	first, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, orders.created, 2)
}

func TestSubmit_WithCoupon(t *testing.T) {
	coupons := &mockCouponRepo{coupons: []coupon.Coupon{spring20()}}
	svc := newTestService(t, catalog(), coupons, &mockOrderRepo{})

	req := validRequest(ItemRequest{FlowerID: "1", Quantity: 2})
	req.CouponCodes = []string{"spring20"}

	o, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, d("90").Equal(o.Subtotal))
	assert.Equal(t, "18.00", o.Discount.StringFixed(2))
	assert.Equal(t, "72.00", o.Total.StringFixed(2))
	assert.Equal(t, []string{"SPRING20"}, o.CouponCodes)
}

func TestSubmit_HalfCentDiscountMatchesQuote(t *testing.T) {
	stem := flower.Flower{ID: "7", Name: "Single Stem", Price: d("2.50"), ShopID: "1"}
	fivePercent := coupon.Coupon{ID: "9", Code: "FIVE", Discount: d("5"), Active: true, ExpiresAt: fixedNow.Add(time.Hour)}
	svc := newTestService(t, newFlowerRepo(stem), &mockCouponRepo{coupons: []coupon.Coupon{fivePercent}}, &mockOrderRepo{})

	req := validRequest(ItemRequest{FlowerID: "7", Quantity: 1})
	req.CouponCodes = []string{"five"}

	o, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "0.13", o.Discount.StringFixed(2))
	assert.Equal(t, "2.37", o.Total.StringFixed(2))

	quote := pricing.Quote([]pricing.Line{{FlowerID: "7", Price: stem.Price, Quantity: 1}}, []coupon.Coupon{fivePercent})
	assert.True(t, quote.Discount.Equal(o.Discount), "quote %s, order %s", quote.Discount, o.Discount)
	assert.True(t, quote.Total.Equal(o.Total), "quote %s, order %s", quote.Total, o.Total)
}

func TestSubmit_StackedCouponsDoNotCompound(t *testing.T) {
	coupons := &mockCouponRepo{coupons: []coupon.Coupon{spring20(), welcome10()}}
	svc := newTestService(t, catalog(), coupons, &mockOrderRepo{})

	req := validRequest(ItemRequest{FlowerID: "1", Quantity: 2})
	req.CouponCodes = []string{"SPRING20", "WELCOME10"}

	o, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	// 90 * 0.20 + 90 * 0.10
	assert.Equal(t, "27.00", o.Discount.StringFixed(2))
	assert.Equal(t, "63.00", o.Total.StringFixed(2))
	assert.Equal(t, []string{"SPRING20", "WELCOME10"}, o.CouponCodes)
}

func TestSubmit_CouponIneligible(t *testing.T) {
	expired := welcome10()
	expired.ExpiresAt = fixedNow.Add(-time.Second)
	inactive := welcome10()
	inactive.ID, inactive.Code, inactive.Active = "3", "LOVE15", false

	tests := []struct {
		name     string
		quantity int
		codes    []string
		reason   pricing.Reason
	}{
		{name: "unknown", quantity: 1, codes: []string{"NOPE"}, reason: pricing.ReasonUnknownCode},
		{name: "below minimum", quantity: 1, codes: []string{"SPRING20"}, reason: pricing.ReasonBelowMinimum},
		{name: "already applied", quantity: 2, codes: []string{"SPRING20", "spring20"}, reason: pricing.ReasonAlreadyApplied},
		{name: "expired", quantity: 1, codes: []string{"WELCOME10"}, reason: pricing.ReasonExpired},
		{name: "inactive", quantity: 1, codes: []string{"LOVE15"}, reason: pricing.ReasonInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Flower 3 is priced below the SPRING20 minimum.
			flowers := newFlowerRepo(
				flower.Flower{ID: "1", Price: d("45")},
				flower.Flower{ID: "3", Price: d("20")},
			)
			coupons := &mockCouponRepo{coupons: []coupon.Coupon{spring20(), expired, inactive}}
			orders := &mockOrderRepo{}
			svc := newTestService(t, flowers, coupons, orders)

			id := "1"
			if tt.reason == pricing.ReasonBelowMinimum {
				id = "3"
			}
			req := validRequest(ItemRequest{FlowerID: id, Quantity: tt.quantity})
			req.CouponCodes = tt.codes

			_, err := svc.Submit(context.Background(), req)

			var ciErr *CouponIneligibleError
			require.ErrorAs(t, err, &ciErr)
			assert.Equal(t, tt.reason, ciErr.Reason)
			assert.Empty(t, orders.created)
		})
	}
}

func TestSubmit_BelowMinimumMessage(t *testing.T) {
	flowers := newFlowerRepo(flower.Flower{ID: "3", Price: d("20")})
	svc := newTestService(t, flowers, &mockCouponRepo{coupons: []coupon.Coupon{spring20()}}, &mockOrderRepo{})

	req := validRequest(ItemRequest{FlowerID: "3", Quantity: 1})
	req.CouponCodes = []string{"SPRING20"}

	_, err := svc.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "minimum order amount for SPRING20 is $30.00", err.Error())
}

func TestSubmit_TransientFailures(t *testing.T) {
	storageErr := errors.New("database is locked")

	t.Run("catalog read", func(t *testing.T) {
		flowers := catalog()
		flowers.getErr = storageErr
		svc := newTestService(t, flowers, &mockCouponRepo{}, &mockOrderRepo{})

		_, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "1", Quantity: 1}))
		require.ErrorIs(t, err, ErrTransient)
		require.ErrorIs(t, err, storageErr)
	})

	t.Run("coupon lookup", func(t *testing.T) {
		svc := newTestService(t, catalog(), &mockCouponRepo{findErr: storageErr}, &mockOrderRepo{})

		req := validRequest(ItemRequest{FlowerID: "1", Quantity: 1})
		req.CouponCodes = []string{"SPRING20"}

		_, err := svc.Submit(context.Background(), req)
		require.ErrorIs(t, err, ErrTransient)
	})

	t.Run("commit", func(t *testing.T) {
		pub := &mockPublisher{}
		svc := newTestService(t, catalog(), &mockCouponRepo{}, &mockOrderRepo{err: storageErr}, WithPublisher(pub))

		_, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "1", Quantity: 1}))
		require.ErrorIs(t, err, ErrTransient)
		require.ErrorIs(t, err, storageErr)

		var tErr *TransientError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, "create order", tErr.Op)
		assert.Empty(t, pub.events, "nothing committed, nothing published")
	})
}

func TestSubmit_PublishesAfterCommit(t *testing.T) {
	pub := &mockPublisher{}
	svc := newTestService(t, catalog(), &mockCouponRepo{}, &mockOrderRepo{}, WithPublisher(pub))

	o, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "2", Quantity: 1}))
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, o.ID, pub.events[0].ID)
}

func TestSubmit_PublishFailureDoesNotFailOrder(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker unavailable")}
	orders := &mockOrderRepo{}
	svc := newTestService(t, catalog(), &mockCouponRepo{}, orders, WithPublisher(pub))

	_, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "2", Quantity: 1}))
	require.NoError(t, err)
	assert.Len(t, orders.created, 1)
}

func TestList_NewestFirst(t *testing.T) {
	svc := newTestService(t, catalog(), &mockCouponRepo{}, &mockOrderRepo{})

	first, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "1", Quantity: 1}))
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), validRequest(ItemRequest{FlowerID: "2", Quantity: 1}))
	require.NoError(t, err)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	for _, o := range list {
		sum := decimal.Zero
		for _, it := range o.Items {
			sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		assert.True(t, sum.Equal(o.Total), "order %s total", o.ID)
	}
}

func TestErrorMessages(t *testing.T) {
	ipErr := &InvalidPayloadError{Field: "items", Reason: "must not be empty"}
	assert.Equal(t, "invalid payload: items must not be empty", ipErr.Error())

	tErr := &TransientError{Op: "create order", Err: errors.New("disk full")}
	assert.True(t, strings.HasPrefix(tErr.Error(), "create order: "))
}
