package storefront

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/domain/order"
	"github.com/xenking/flowershop/internal/pricing"
)

const defaultSyncTimeout = 10 * time.Second

// FavoriteSyncer persists a favorite toggle on the server.
type FavoriteSyncer interface {
	ToggleFavorite(ctx context.Context, flowerID string) (*flower.Flower, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithFavoriteSync sends every local favorite toggle to s in the background.
func WithFavoriteSync(s FavoriteSyncer) SessionOption {
	return func(ss *Session) { ss.syncer = s }
}

// WithLogger sets the logger used for background failures.
func WithLogger(lg *zap.Logger) SessionOption {
	return func(s *Session) { s.lg = lg }
}

// WithSyncTimeout bounds each background favorite call.
func WithSyncTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.syncTimeout = d }
}

// Session is the explicit state of one shopper: the cart, the coupons they
// applied and their local view of favorite flags. All methods are safe for
// concurrent use.
type Session struct {
	mu        sync.Mutex
	cart      Cart
	catalog   []coupon.Coupon
	applied   []coupon.Coupon
	favorites map[string]bool

	syncer      FavoriteSyncer
	syncTimeout time.Duration
	lg          *zap.Logger
	pending     sync.WaitGroup
}

// NewSession creates a session that resolves coupon codes against catalog.
func NewSession(catalog []coupon.Coupon, opts ...SessionOption) *Session {
	s := &Session{
		catalog:     slices.Clone(catalog),
		favorites:   make(map[string]bool),
		syncTimeout: defaultSyncTimeout,
		lg:          zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddToCart adds qty units of f.
func (s *Session) AddToCart(f flower.Flower, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Add(f, qty)
}

// SetQuantity updates a line; zero or less removes it.
func (s *Session) SetQuantity(flowerID string, qty int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetQuantity(flowerID, qty)
}

// RemoveFromCart drops a line.
func (s *Session) RemoveFromCart(flowerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Remove(flowerID)
}

// Lines returns the current cart lines.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// Reset empties the cart and drops applied coupons, as after checkout.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.applied = nil
}

// ApplyCoupon applies the coupon matching code against the current cart
// subtotal. On rejection the applied set is left untouched.
func (s *Session) ApplyCoupon(code string, now time.Time) *pricing.Ineligible {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := pricing.MatchCode(s.catalog, code)
	if !ok {
		return &pricing.Ineligible{Code: strings.TrimSpace(code), Reason: pricing.ReasonUnknownCode}
	}
	subtotal := pricing.Subtotal(s.cart.PricingLines())
	if inel := pricing.EvaluateApply(c, s.applied, subtotal, now); inel != nil {
		return inel
	}
	s.applied = append(s.applied, c)
	return nil
}

// RemoveCoupon drops an applied coupon by code and reports whether it was
// applied.
func (s *Session) RemoveCoupon(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = strings.TrimSpace(code)
	i := slices.IndexFunc(s.applied, func(c coupon.Coupon) bool { return strings.EqualFold(c.Code, code) })
	if i < 0 {
		return false
	}
	s.applied = slices.Delete(s.applied, i, i+1)
	return true
}

// Applied returns the applied coupons in application order.
func (s *Session) Applied() []coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.applied)
}

// Quote prices the cart with the applied coupons for display. The server
// reprices on submission.
func (s *Session) Quote() pricing.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Quote(s.cart.PricingLines(), s.applied)
}

// OrderRequest builds the submission for the current cart. Only flower ids
// and quantities are sent.
func (s *Session) OrderRequest(customer order.Customer) order.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]order.ItemRequest, len(s.cart.lines))
	for i, l := range s.cart.lines {
		items[i] = order.ItemRequest{FlowerID: l.Flower.ID, Quantity: l.Quantity}
	}
	var codes []string
	for _, c := range s.applied {
		codes = append(codes, c.Code)
	}
	return order.Request{Customer: customer, Items: items, CouponCodes: codes}
}

// LoadFavorites replaces the local favorite view with the flags of flowers.
func (s *Session) LoadFavorites(flowers []flower.Flower) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.favorites = make(map[string]bool, len(flowers))
	for _, f := range flowers {
		s.favorites[f.ID] = f.IsFavorite
	}
}

// IsFavorite reports the local favorite flag.
func (s *Session) IsFavorite(flowerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites[flowerID]
}

// ToggleFavorite flips the local flag immediately and returns the new value.
// The server call runs in the background; its failure is logged and the
// local flag is kept.
func (s *Session) ToggleFavorite(ctx context.Context, flowerID string) bool {
	s.mu.Lock()
	v := !s.favorites[flowerID]
	s.favorites[flowerID] = v
	s.mu.Unlock()

	if s.syncer == nil {
		return v
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
		defer cancel()

		if _, err := s.syncer.ToggleFavorite(ctx, flowerID); err != nil {
			s.lg.Warn("Favorite sync failed",
				zap.String("flower_id", flowerID),
				zap.Bool("favorite", v),
				zap.Error(err),
			)
		}
	}()
	return v
}

// Wait blocks until background favorite calls have finished.
func (s *Session) Wait() {
	s.pending.Wait()
}
