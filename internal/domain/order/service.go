package order

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/pricing"
)

const defaultCommitTimeout = 5 * time.Second

// Request holds the input for submitting an order. It deliberately carries
// no prices: every line is repriced from the catalog.
type Request struct {
	Customer    Customer
	Items       []ItemRequest
	CouponCodes []string
}

// ItemRequest is a requested flower and quantity.
type ItemRequest struct {
	FlowerID string
	Quantity int
}

// Service encapsulates order submission business logic.
type Service struct {
	flowers   flower.Repository
	coupons   coupon.Repository
	orders    Repository
	publisher Publisher

	now           func() time.Time
	commitTimeout time.Duration
	tracer        trace.Tracer
	meter         metric.Meter
	metrics       *metrics
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the post-commit event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithCommitTimeout bounds the duration of the commit transaction.
func WithCommitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTelemetry sets the tracer and meter providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("github.com/xenking/flowershop/internal/domain/order")
		s.meter = mp.Meter("github.com/xenking/flowershop/internal/domain/order")
	}
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	flowers flower.Repository,
	coupons coupon.Repository,
	orders Repository,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		flowers:       flowers,
		coupons:       coupons,
		orders:        orders,
		publisher:     nopPublisher{},
		now:           time.Now,
		commitTimeout: defaultCommitTimeout,
		tracer:        tracenoop.NewTracerProvider().Tracer(""),
		meter:         metricnoop.NewMeterProvider().Meter(""),
	}
	for _, o := range opts {
		o(s)
	}

	m, err := newMetrics(s.meter)
	if err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}
	s.metrics = m

	return s, nil
}

// Submit validates the request, reprices every line from the catalog,
// applies requested coupons and commits the order atomically.
func (s *Service) Submit(ctx context.Context, req Request) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit",
		trace.WithAttributes(attribute.Int("order.items", len(req.Items))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := validate(req); err != nil {
		return nil, err
	}

	items, err := s.reprice(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	now := s.now().UTC()

	applied, err := s.resolveCoupons(ctx, req.CouponCodes, subtotal, now)
	if err != nil {
		return nil, err
	}

	discount := pricing.RoundedDiscount(applied, subtotal)
	couponCodes := make([]string, len(applied))
	for i, c := range applied {
		couponCodes[i] = c.Code
	}

	o := &Order{
		ID: uuid.New().String(),
		Customer: Customer{
			Name:    strings.TrimSpace(req.Customer.Name),
			Email:   strings.TrimSpace(req.Customer.Email),
			Phone:   strings.TrimSpace(req.Customer.Phone),
			Address: strings.TrimSpace(req.Customer.Address),
		},
		Items:       items,
		Subtotal:    subtotal,
		Discount:    discount,
		Total:       pricing.Total(subtotal, discount),
		CouponCodes: couponCodes,
		CreatedAt:   now,
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	if err := s.orders.Create(commitCtx, o); err != nil {
		return nil, &TransientError{Op: "create order", Err: err}
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	s.metrics.recordPlaced(ctx, o)

	if err := s.publisher.OrderPlaced(ctx, *o); err != nil {
		zctx.From(ctx).Warn("Publish order event failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}

	return o, nil
}

// List returns all committed orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// reprice fetches all requested flowers in one batch and freezes their
// current catalog price on each line.
func (s *Service) reprice(ctx context.Context, req []ItemRequest) ([]LineItem, error) {
	ids := make([]string, 0, len(req))
	seen := make(map[string]struct{}, len(req))
	for _, it := range req {
		id := strings.TrimSpace(it.FlowerID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	fetched, err := s.flowers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, &TransientError{Op: "get flowers", Err: err}
	}

	prices := make(map[string]decimal.Decimal, len(fetched))
	for _, f := range fetched {
		prices[f.ID] = f.Price
	}

	items := make([]LineItem, len(req))
	for i, it := range req {
		id := strings.TrimSpace(it.FlowerID)
		price, ok := prices[id]
		if !ok {
			return nil, &UnknownFlowerError{FlowerID: id}
		}
		items[i] = LineItem{
			FlowerID: id,
			Quantity: it.Quantity,
			Price:    price,
		}
	}
	return items, nil
}

// resolveCoupons looks up and evaluates every requested code against the
// repriced subtotal.
func (s *Service) resolveCoupons(ctx context.Context, requested []string, subtotal decimal.Decimal, now time.Time) ([]coupon.Coupon, error) {
	applied := make([]coupon.Coupon, 0, len(requested))
	for _, code := range requested {
		code = strings.TrimSpace(code)

		c, err := s.coupons.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				return nil, &CouponIneligibleError{&pricing.Ineligible{
					Code:   code,
					Reason: pricing.ReasonUnknownCode,
				}}
			}
			return nil, &TransientError{Op: "find coupon", Err: err}
		}

		if inel := pricing.EvaluateApply(*c, applied, subtotal, now); inel != nil {
			return nil, &CouponIneligibleError{inel}
		}
		applied = append(applied, *c)
	}
	return applied, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.Customer.Name) == "" {
		return &InvalidPayloadError{Field: "customer_name", Reason: "is required"}
	}
	if strings.TrimSpace(req.Customer.Address) == "" {
		return &InvalidPayloadError{Field: "address", Reason: "is required"}
	}
	if email := strings.TrimSpace(req.Customer.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return &InvalidPayloadError{Field: "email", Reason: "is not a valid address"}
		}
	}
	if len(req.Items) == 0 {
		return &InvalidPayloadError{Field: "items", Reason: "must not be empty"}
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.FlowerID) == "" {
			return &InvalidPayloadError{Field: "items.flower_id", Reason: "is required"}
		}
		if it.Quantity <= 0 {
			return &InvalidPayloadError{Field: "items.quantity", Reason: "must be a positive integer"}
		}
	}
	for _, code := range req.CouponCodes {
		if strings.TrimSpace(code) == "" {
			return &InvalidPayloadError{Field: "coupon_codes", Reason: "must not contain empty codes"}
		}
	}
	return nil
}
