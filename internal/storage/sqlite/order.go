package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xenking/flowershop/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on SQLite.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository returns an OrderRepository using db.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db.gorm}
}

// Create inserts the order header and its line items in one transaction.
// A failing line item rolls back the header.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	m := newOrderModel(o)
	items := m.Items
	m.Items = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return fmt.Errorf("inserting header: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("inserting items: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// List returns all orders newest first with items in request order.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	var rows []orderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	out := make([]order.Order, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}
