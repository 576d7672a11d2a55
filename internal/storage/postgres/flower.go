package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/flowershop/internal/domain/flower"
)

const (
	flowerColumns = `id, name, price, image, description, shop_id, is_favorite, date_added`

	listShopsSQL = `SELECT id, name, category FROM shops ORDER BY name, id`

	listFlowersSQL = `SELECT ` + flowerColumns + ` FROM flowers
		WHERE ($1 = '' OR shop_id = $1)`

	getFlowersByIDsSQL = `SELECT ` + flowerColumns + ` FROM flowers WHERE id = ANY($1)`

	toggleFavoriteSQL = `UPDATE flowers SET is_favorite = NOT is_favorite
		WHERE id = $1 RETURNING ` + flowerColumns
)

var _ flower.Repository = (*FlowerRepository)(nil)

// FlowerRepository implements flower.Repository backed by PostgreSQL.
type FlowerRepository struct {
	pool *pgxpool.Pool
}

// NewFlowerRepository returns a FlowerRepository that uses the given pool.
func NewFlowerRepository(pool *pgxpool.Pool) *FlowerRepository {
	return &FlowerRepository{pool: pool}
}

// ListShops returns all shops ordered by name.
func (r *FlowerRepository) ListShops(ctx context.Context) ([]flower.Shop, error) {
	rows, err := r.pool.Query(ctx, listShopsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing shops: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (flower.Shop, error) {
		var s flower.Shop
		err := row.Scan(&s.ID, &s.Name, &s.Category)
		return s, err
	})
}

// List returns flowers matching filter in the requested order.
func (r *FlowerRepository) List(ctx context.Context, filter flower.Filter) ([]flower.Flower, error) {
	rows, err := r.pool.Query(ctx, listFlowersSQL+" ORDER BY "+orderBy(filter.Sort), filter.ShopID)
	if err != nil {
		return nil, fmt.Errorf("listing flowers: %w", err)
	}
	return pgx.CollectRows(rows, scanFlower)
}

// GetByIDs returns flowers matching any of the given IDs.
func (r *FlowerRepository) GetByIDs(ctx context.Context, ids []string) ([]flower.Flower, error) {
	rows, err := r.pool.Query(ctx, getFlowersByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting flowers by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanFlower)
}

// ToggleFavorite flips is_favorite of one flower in a single statement.
func (r *FlowerRepository) ToggleFavorite(ctx context.Context, id string) (*flower.Flower, error) {
	rows, err := r.pool.Query(ctx, toggleFavoriteSQL, id)
	if err != nil {
		return nil, fmt.Errorf("toggling favorite %q: %w", id, err)
	}
	f, err := pgx.CollectExactlyOneRow(rows, scanFlower)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, flower.ErrNotFound
		}
		return nil, fmt.Errorf("toggling favorite %q: %w", id, err)
	}
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

func scanFlower(row pgx.CollectableRow) (flower.Flower, error) {
	var f flower.Flower
	err := row.Scan(
		&f.ID, &f.Name, &f.Price, &f.Image, &f.Description,
		&f.ShopID, &f.IsFavorite, &f.DateAdded,
	)
	f.DateAdded = f.DateAdded.UTC()
	return f, err
}
