package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/flowershop/internal/api"
	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/domain/order"
	"github.com/xenking/flowershop/internal/storage"
)

func startAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store, err := storage.Open(ctx, storage.Config{URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	data, err := catalog.Embedded()
	require.NoError(t, err)
	_, err = catalog.Seed(ctx, store.Catalog, data)
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	svc, err := order.NewService(store.Flowers, store.Coupons, store.Orders, order.WithClock(clock))
	require.NoError(t, err)

	srv := httptest.NewServer(api.NewHandler(api.HandlerConfig{}, store.Flowers, store.Coupons, svc).Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api-url", url}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseItem(t *testing.T) {
	tests := []struct {
		arg     string
		id      string
		qty     int
		wantErr bool
	}{
		{arg: "1=2", id: "1", qty: 2},
		{arg: " 7 = 3 ", id: "7", qty: 3},
		{arg: "5", id: "5", qty: 1},
		{arg: "1=0", wantErr: true},
		{arg: "1=-2", wantErr: true},
		{arg: "1=two", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			id, qty, err := parseItem(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.qty, qty)
		})
	}
}

func TestShopsCommand(t *testing.T) {
	out, err := run(t, startAPI(t), "shops")
	require.NoError(t, err)
	assert.Contains(t, out, "Bloomwell")
}

func TestFlowersCommand_InvalidSort(t *testing.T) {
	_, err := run(t, startAPI(t), "flowers", "--sort", "random")
	require.EqualError(t, err, "invalid sort: random")
}

func TestOrderCommand(t *testing.T) {
	url := startAPI(t)

	out, err := run(t, url, "order", "--dry-run", "--item", "1=2", "--item", "3", "--coupon", "spring20")
	require.NoError(t, err)
	assert.Contains(t, out, "Subtotal  $128.00")
	assert.Contains(t, out, "Discount -$25.60")
	assert.Contains(t, out, "Total     $102.40")
	assert.NotContains(t, out, "placed")

	out, err = run(t, url, "order", "--name", "Ada", "--address", "12 Garden Lane", "--item", "1=2", "--item", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "placed, total $128.00")

	out, err = run(t, url, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Orders     1")
}

func TestOrderCommand_CouponRejectedLocally(t *testing.T) {
	_, err := run(t, startAPI(t), "order", "--item", "1", "--coupon", "NOPE")
	require.EqualError(t, err, "coupon NOPE does not exist")
}
