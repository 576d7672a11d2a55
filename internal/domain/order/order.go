package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Customer holds the contact details captured at checkout.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Order is a committed customer order. Orders are immutable once created.
type Order struct {
	ID       string
	Customer Customer
	Items    []LineItem
	// Subtotal is the sum of Price * Quantity over Items.
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	// Total is Subtotal - Discount.
	Total       decimal.Decimal
	CouponCodes []string
	CreatedAt   time.Time
}

// LineItem is one ordered flower with the price frozen at order time.
type LineItem struct {
	FlowerID string
	Quantity int
	Price    decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order header and all line items atomically.
	Create(ctx context.Context, order *Order) error
	// List returns all orders newest first, with items in their original order.
	List(ctx context.Context) ([]Order, error)
}

// Publisher is notified after an order has been committed.
type Publisher interface {
	OrderPlaced(ctx context.Context, order Order) error
}

type nopPublisher struct{}

func (nopPublisher) OrderPlaced(context.Context, Order) error { return nil }
