// Package migrations embeds the schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// FS holds the versioned SQL migrations.
//
//go:embed *.sql
var FS embed.FS

const dialect = "pgx"

// Open returns a database/sql handle suitable for goose.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := goose.OpenDBWithDriver(dialect, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}
	return db, nil
}

func configure() error {
	goose.SetBaseFS(FS)
	return goose.SetDialect(dialect)
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB) error {
	if err := configure(); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB) error {
	if err := configure(); err != nil {
		return err
	}
	return goose.DownContext(ctx, db, ".")
}

// Status logs the applied state of each migration.
func Status(ctx context.Context, db *sql.DB) error {
	if err := configure(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, ".")
}

// Versions lists the embedded migrations in apply order.
func Versions() (goose.Migrations, error) {
	if err := configure(); err != nil {
		return nil, err
	}
	return goose.CollectMigrations(".", 0, goose.MaxVersion)
}
