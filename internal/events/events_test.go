package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/xenking/flowershop/internal/domain/order"
)

func testOrder() order.Order {
	return order.Order{
		ID:       "0b5a7c1e-4f7d-4a39-9a55-8d4b6f0a2c11",
		Customer: order.Customer{Name: "Ada", Address: "12 Garden Lane"},
		Items: []order.LineItem{
			{FlowerID: "1", Quantity: 2, Price: decimal.NewFromInt(45)},
		},
		Subtotal:    decimal.NewFromInt(90),
		Discount:    decimal.NewFromInt(18),
		Total:       decimal.NewFromInt(72),
		CouponCodes: []string{"SPRING20"},
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeOrderPlaced(t *testing.T) {
	raw := EncodeOrderPlaced(testOrder())

	var (
		fields = map[string]string{}
		items  int
		codes  []string
	)
	d := jx.DecodeBytes(raw)
	require.NoError(t, d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				items++
				return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					if string(key) == "price" {
						n, err := d.Num()
						if err != nil {
							return err
						}
						fields["item.price"] = n.String()
						return nil
					}
					return d.Skip()
				})
			})
		case "coupon_codes":
			return d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				codes = append(codes, s)
				return err
			})
		case "subtotal", "discount", "total":
			n, err := d.Num()
			if err != nil {
				return err
			}
			fields[string(key)] = n.String()
			return nil
		default:
			s, err := d.Str()
			fields[string(key)] = s
			return err
		}
	}))

	assert.Equal(t, TypeOrderPlaced, fields["type"])
	assert.Equal(t, "0b5a7c1e-4f7d-4a39-9a55-8d4b6f0a2c11", fields["order_id"])
	assert.Equal(t, "Ada", fields["customer_name"])
	assert.Equal(t, "90.00", fields["subtotal"])
	assert.Equal(t, "18.00", fields["discount"])
	assert.Equal(t, "72.00", fields["total"])
	assert.Equal(t, "2024-05-01T12:00:00Z", fields["created_at"])
	assert.Equal(t, "45.00", fields["item.price"])
	assert.Equal(t, 1, items)
	assert.Equal(t, []string{"SPRING20"}, codes)
}

type mockProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (m *mockProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var res kgo.ProduceResults
	for _, r := range rs {
		m.records = append(m.records, r)
		res = append(res, kgo.ProduceResult{Record: r, Err: m.err})
	}
	return res
}

func (m *mockProducer) Close() { m.closed = true }

func TestKafka_OrderPlaced(t *testing.T) {
	p := &mockProducer{}
	k := NewKafkaWithProducer(p, "")

	require.NoError(t, k.OrderPlaced(context.Background(), testOrder()))
	require.Len(t, p.records, 1)

	rec := p.records[0]
	assert.Equal(t, DefaultTopic, rec.Topic)
	assert.Equal(t, []byte("0b5a7c1e-4f7d-4a39-9a55-8d4b6f0a2c11"), rec.Key)
	assert.Equal(t, EncodeOrderPlaced(testOrder()), rec.Value)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "type", rec.Headers[0].Key)

	k.Close()
	assert.True(t, p.closed)
}

func TestKafka_OrderPlacedError(t *testing.T) {
	brokerErr := errors.New("not enough replicas")
	k := NewKafkaWithProducer(&mockProducer{err: brokerErr}, "orders")

	err := k.OrderPlaced(context.Background(), testOrder())
	require.ErrorIs(t, err, brokerErr)
}
