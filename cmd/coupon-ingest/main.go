package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/ingest"
	"github.com/xenking/flowershop/internal/storage"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupon files")
	flag.StringVar(&pattern, "pattern", "couponbase*.gz", "glob selecting coupon files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "SQLite DSN or postgres:// URL (or DATABASE_URL env)")
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
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, filepath.Join(dataDir, pattern), databaseURL); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, glob, databaseURL string) error {
	files, err := filepath.Glob(glob)
	if err != nil {
		return errors.Wrapf(err, "glob %s", glob)
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s", glob)
	}
	lg.Info("Ingesting coupon files", zap.Strings("files", files))

	store, err := storage.Open(ctx, storage.Config{URL: databaseURL, MaxConns: 4})
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	rep, err := ingest.NewImporter(store.Coupons, store.Catalog, lg).Import(ctx, files)
	if err != nil {
		return err
	}

	lg.Info("Coupon ingest completed",
		zap.Int("parsed", rep.Parsed),
		zap.Int("inserted", rep.Inserted),
		zap.Int("existing", rep.Existing),
		zap.Int("duplicate", rep.Duplicate),
		zap.Int("invalid", rep.Invalid),
	)
	return nil
}
