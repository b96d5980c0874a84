package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/udisondev/highsociety/internal/db/migrations"
)

// RunMigrations применяет embedded миграции к PostgreSQL по DSN.
// goose работает через database/sql, поэтому открываем отдельное
// соединение через pgx stdlib driver.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	applied, err := migrations.Up(ctx, sqlDB, goose.DialectPostgres)
	if err != nil {
		return err
	}
	if applied > 0 {
		slog.Info("postgres schema migrated", "applied", applied)
	}
	return nil
}
