package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/openshelf/catalog-service/migrations"
)

// runMigrations brings the schema up to date from the embedded migration
// files before the server starts accepting work.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	before, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	after, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	if after != before {
		logger.Info("Applied database migrations",
			slog.Int64("from_version", before),
			slog.Int64("to_version", after))
	} else {
		logger.Debug("Database schema up to date", slog.Int64("version", after))
	}
	return nil
}
