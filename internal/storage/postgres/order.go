package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/flowershop/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, customer_name, email, phone, address, subtotal, discount, total, coupon_codes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, position, flower_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	listOrdersSQL = `SELECT id, customer_name, email, phone, address, subtotal, discount, total,
		coupon_codes, created_at
		FROM orders ORDER BY created_at DESC, id DESC`

	listOrderItemsSQL = `SELECT order_id, flower_id, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order header and its line items in one transaction.
// Line items are sent as a single batch; the first failing statement rolls
// back the header as well.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	codes := o.CouponCodes
	if codes == nil {
		codes = []string{}
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Address,
			o.Subtotal, o.Discount, o.Total, codes, o.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting header: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(createOrderItemSQL, o.ID, i, it.FlowerID, it.Quantity, it.Price)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting items: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// List returns all orders newest first with their items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}

	rows, err = r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	var (
		orderID string
		item    order.LineItem
	)
	_, err = pgx.ForEachRow(rows, []any{&orderID, &item.FlowerID, &item.Quantity, &item.Price}, func() error {
		i := byID[orderID]
		orders[i].Items = append(orders[i].Items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Address,
		&o.Subtotal, &o.Discount, &o.Total, &o.CouponCodes, &o.CreatedAt,
	)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, err
}
