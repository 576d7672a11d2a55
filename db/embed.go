// Package db provides the embedded PostgreSQL migrations and catalog seed.
package db

import "embed"

// Migrations holds the goose SQL migrations under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations passed to goose.
const MigrationsDir = "migrations"

// Catalog is the seed catalog of shops, flowers and coupons.
//
//go:embed seed/catalog.json
var Catalog []byte
