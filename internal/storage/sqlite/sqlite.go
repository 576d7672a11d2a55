// Package sqlite implements the storage repositories on an embedded SQLite
// database through gorm.
package sqlite

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps a gorm connection to a single SQLite database.
type DB struct {
	gorm *gorm.DB
}

// Open connects to the SQLite database at dsn and migrates the schema.
// Foreign keys are always enforced. SQLite allows one writer at a time, so
// the pool is limited to a single connection; this also keeps ":memory:"
// databases shared across calls.
func Open(ctx context.Context, dsn string) (*DB, error) {
	g, err := gorm.Open(sqlite.Open(withForeignKeys(dsn)), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	sqlDB, err := g.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}
	sqlDB.SetMaxOpenConns(1)

	if err := g.WithContext(ctx).Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}
	if err := g.WithContext(ctx).AutoMigrate(
		&shopModel{},
		&flowerModel{},
		&couponModel{},
		&orderModel{},
		&orderItemModel{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return &DB{gorm: g}, nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}
