package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/storage"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "SQLite DSN or postgres:// URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog JSON file; the embedded catalog is used when empty")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		databaseURL = "file:flowershop.db"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	data, err := loadCatalog(catalogFile)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, storage.Config{URL: databaseURL, MaxConns: 2})
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()
	lg.Info("Connected", zap.String("backend", string(store.Backend)))

	res, err := catalog.Seed(ctx, store.Catalog, data)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	lg.Info("Seed completed",
		zap.Int("shops", res.Shops),
		zap.Int("flowers", res.Flowers),
		zap.Int("coupons", res.Coupons),
	)
	return nil
}

func loadCatalog(path string) (*catalog.Data, error) {
	if path == "" {
		return catalog.Embedded()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	data, err := catalog.Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return data, nil
}
