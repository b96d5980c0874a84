package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/highsociety/internal/config"
	"github.com/udisondev/highsociety/internal/db"
	"github.com/udisondev/highsociety/internal/db/sqlite"
	"github.com/udisondev/highsociety/internal/gamestate"
	"github.com/udisondev/highsociety/internal/savefile"
)

// storage bundles the save and run history backends with their shutdown.
type storage struct {
	saves gamestate.Repository
	runs  gamestate.RunHistory
	close func()
}

func openStorage(ctx context.Context, cfg config.Storage) (storage, error) {
	switch cfg.Backend {
	case config.BackendFile:
		fs := savefile.New(cfg.SavePath)
		slog.Info("using save file", "path", fs.Path())
		return storage{saves: fs, runs: fs, close: func() {}}, nil

	case config.BackendSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, fmt.Errorf("opening sqlite %s: %w", cfg.SQLitePath, err)
		}
		slog.Info("sqlite storage opened", "path", cfg.SQLitePath)
		return storage{saves: st, runs: st, close: func() {
			if err := st.Close(); err != nil {
				slog.Error("closing sqlite", "err", err)
			}
		}}, nil

	case config.BackendPostgres:
		dsn := cfg.Database.DSN()
		database, err := db.New(ctx, dsn)
		if err != nil {
			return storage{}, fmt.Errorf("connecting to database: %w", err)
		}
		slog.Info("database connected")
		if err := db.RunMigrations(ctx, dsn); err != nil {
			database.Close()
			return storage{}, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return storage{saves: database.Saves(), runs: database.Runs(), close: database.Close}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
