// Package db opens the Postgres connection, applies the embedded schema
// migrations and runs background housekeeping.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NiketSingh147/StoreIt/internal/db/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// gooseUp is a seam for testing goose.UpContext.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// InitPostgres opens and pings the database, then migrates it to the
// latest schema version.
func InitPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
