package flower

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested flower does not exist.
var ErrNotFound = errors.New("flower not found")

// Shop groups flowers in the catalog.
type Shop struct {
	ID       string
	Name     string
	Category string
}

// Flower is a catalog item. Price is authoritative only on the server.
type Flower struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Image       string
	Description string
	ShopID      string
	IsFavorite  bool
	DateAdded   time.Time
}

// Sort enumerates catalog orderings.
type Sort string

const (
	SortName      Sort = "name"
	SortPriceLow  Sort = "price-low"
	SortPriceHigh Sort = "price-high"
	SortDate      Sort = "date"
	SortFavorites Sort = "favorites"
)

// ParseSort converts a query value into a Sort. Empty input yields SortName.
func ParseSort(s string) (Sort, bool) {
	switch v := Sort(s); v {
	case "":
		return SortName, true
	case SortName, SortPriceLow, SortPriceHigh, SortDate, SortFavorites:
		return v, true
	default:
		return "", false
	}
}

// Filter narrows a catalog listing.
type Filter struct {
	// ShopID restricts the listing to one shop when non-empty.
	ShopID string
	Sort   Sort
}

// Repository defines catalog reads and the favorite toggle.
type Repository interface {
	ListShops(ctx context.Context) ([]Shop, error)
	List(ctx context.Context, filter Filter) ([]Flower, error)
	// GetByIDs returns the flowers matching ids. Missing ids are silently
	// absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Flower, error)
	// ToggleFavorite flips the favorite flag of one flower and returns the
	// updated row. It returns ErrNotFound for unknown ids.
	ToggleFavorite(ctx context.Context, id string) (*Flower, error)
}
