// Package storage opens the configured database backend and exposes its
// repositories.
package storage

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/domain/coupon"
	"github.com/xenking/flowershop/internal/domain/flower"
	"github.com/xenking/flowershop/internal/domain/order"
	"github.com/xenking/flowershop/internal/storage/postgres"
	"github.com/xenking/flowershop/internal/storage/sqlite"
)

// Backend names a storage engine.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config selects and tunes the backend.
type Config struct {
	// URL is a postgres:// URL or a SQLite DSN such as "file:flowershop.db".
	URL      string
	MaxConns int32
}

// Store bundles repositories sharing one database.
type Store struct {
	Backend Backend
	Flowers flower.Repository
	Coupons coupon.Repository
	Orders  order.Repository
	Catalog catalog.Writer

	ping  func(context.Context) error
	close func()
}

// BackendFor reports which backend serves url.
func BackendFor(url string) Backend {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return BackendPostgres
	}
	return BackendSQLite
}

// Open connects to the database at cfg.URL and brings its schema up to date.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch BackendFor(cfg.URL) {
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, errors.Wrap(err, "connect to postgres")
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "migrate postgres")
		}
		return &Store{
			Backend: BackendPostgres,
			Flowers: postgres.NewFlowerRepository(pool),
			Coupons: postgres.NewCouponRepository(pool),
			Orders:  postgres.NewOrderRepository(pool),
			Catalog: postgres.NewCatalogWriter(pool),
			ping:    pool.Ping,
			close:   pool.Close,
		}, nil
	default:
		db, err := sqlite.Open(ctx, strings.TrimPrefix(cfg.URL, "sqlite://"))
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		return &Store{
			Backend: BackendSQLite,
			Flowers: sqlite.NewFlowerRepository(db),
			Coupons: sqlite.NewCouponRepository(db),
			Orders:  sqlite.NewOrderRepository(db),
			Catalog: sqlite.NewCatalogWriter(db),
			ping:    db.Ping,
			close:   func() { _ = db.Close() },
		}, nil
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases all connections.
func (s *Store) Close() {
	s.close()
}
