package sqlite

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"github.com/xenking/flowershop/internal/domain/flower"
)

var _ flower.Repository = (*FlowerRepository)(nil)

// FlowerRepository implements flower.Repository on SQLite.
type FlowerRepository struct {
	db *gorm.DB
}

// NewFlowerRepository returns a FlowerRepository using db.
func NewFlowerRepository(db *DB) *FlowerRepository {
	return &FlowerRepository{db: db.gorm}
}

// ListShops returns all shops ordered by name.
func (r *FlowerRepository) ListShops(ctx context.Context) ([]flower.Shop, error) {
	var rows []shopModel
	if err := r.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing shops: %w", err)
	}
	shops := make([]flower.Shop, len(rows))
	for i, m := range rows {
		shops[i] = m.toDomain()
	}
	return shops, nil
}

// List returns flowers matching filter in the requested order.
func (r *FlowerRepository) List(ctx context.Context, filter flower.Filter) ([]flower.Flower, error) {
	q := r.db.WithContext(ctx).Order(orderBy(filter.Sort))
	if filter.ShopID != "" {
		q = q.Where("shop_id = ?", filter.ShopID)
	}
	var rows []flowerModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing flowers: %w", err)
	}
	return toFlowers(rows), nil
}

// GetByIDs returns flowers matching any of ids.
func (r *FlowerRepository) GetByIDs(ctx context.Context, ids []string) ([]flower.Flower, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []flowerModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting flowers by ids: %w", err)
	}
	return toFlowers(rows), nil
}

// ToggleFavorite flips is_favorite of one flower and returns the new row.
func (r *FlowerRepository) ToggleFavorite(ctx context.Context, id string) (*flower.Flower, error) {
	var m flowerModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&flowerModel{}).
			Where("id = ?", id).
			Update("is_favorite", gorm.Expr("NOT is_favorite"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return flower.ErrNotFound
		}
		return tx.Where("id = ?", id).Take(&m).Error
	})
	if err != nil {
		if errors.Is(err, flower.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("toggling favorite %q: %w", id, err)
	}
	f := m.toDomain()
	return &f, nil
}

func orderBy(s flower.Sort) string {
	switch s {
	case flower.SortPriceLow:
		return "price ASC, name ASC"
	case flower.SortPriceHigh:
		return "price DESC, name ASC"
	case flower.SortDate:
		return "date_added DESC, id ASC"
	case flower.SortFavorites:
		return "is_favorite DESC, name ASC"
	default:
		return "name ASC, id ASC"
	}
}

func toFlowers(rows []flowerModel) []flower.Flower {
	out := make([]flower.Flower, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out
}
