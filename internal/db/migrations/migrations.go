// Package migrations embeds the goose SQL migrations shared by the
// PostgreSQL and SQLite backends. The SQL sticks to types both engines
// accept; timestamps are unix milliseconds.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Up applies every pending migration and returns how many ran.
func Up(ctx context.Context, sqlDB *sql.DB, dialect goose.Dialect) (int, error) {
	provider, err := goose.NewProvider(dialect, sqlDB, FS)
	if err != nil {
		return 0, fmt.Errorf("creating goose provider (%s): %w", dialect, err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("applying migrations (%s): %w", dialect, err)
	}
	for _, r := range results {
		slog.Debug("migration applied", "dialect", dialect, "version", r.Source.Version, "duration", r.Duration)
	}
	return len(results), nil
}
