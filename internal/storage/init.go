package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationPath = "migrations"

func runMigrations(db *sql.DB, log *zap.Logger) error {
	const op = "storage.migrations"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := goose.Up(db, migrationPath)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("database migrations applied")
	return nil
}

// checkDB runs a trivial query over the migration connection.
func checkDB(ctx context.Context, db *sql.DB) error {
	const op = "storage.checkDB"

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if one != 1 {
		return fmt.Errorf("%s: unexpected result %d", op, one)
	}
	return nil
}
