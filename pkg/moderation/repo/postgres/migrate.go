package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations. When schema is set it is
// created if missing and used as the search_path.
func Migrate(ctx context.Context, databaseURL, schema string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	// One connection so the search_path below applies to every statement.
	db.SetMaxOpenConns(1)

	if schema != "" {
		quoted := ident(schema)
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoted); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
		if _, err := db.ExecContext(ctx, "SET search_path TO "+quoted); err != nil {
			return fmt.Errorf("set search_path: %w", err)
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
