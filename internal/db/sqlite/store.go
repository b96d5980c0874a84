// Package sqlite provides a SQLite-backed save and run history store for
// single-machine play. It shares the goose migrations of the PostgreSQL backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/udisondev/highsociety/internal/db/migrations"
	"github.com/udisondev/highsociety/internal/gamestate"
)

// Store persists save slots and run history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := migrations.Up(ctx, sqlDB, goose.DialectSQLite3); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadSave returns nil, nil when the slot has never been saved.
func (s *Store) LoadSave(ctx context.Context, slot string) (*gamestate.SaveState, error) {
	var (
		st        gamestate.SaveState
		abilities string
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT slot, gold, xp, level, ability_points, unlocked_abilities,
		        hour, day, hunger, thirst, sleep, updated_at
		 FROM saves WHERE slot = ?`, slot,
	).Scan(
		&st.Slot, &st.Gold,
		&st.Progression.XP, &st.Progression.Level, &st.Progression.AbilityPoints, &abilities,
		&st.Upkeep.Hour, &st.Upkeep.Day, &st.Upkeep.Hunger, &st.Upkeep.Thirst, &st.Upkeep.Sleep,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get save %q: %w", slot, err)
	}
	if err := json.Unmarshal([]byte(abilities), &st.Progression.UnlockedAbilities); err != nil {
		return nil, fmt.Errorf("decode abilities of save %q: %w", slot, err)
	}
	st.UpdatedAt = fromMillis(updatedAt)
	return &st, nil
}

// StoreSave inserts or replaces a save slot.
func (s *Store) StoreSave(ctx context.Context, st gamestate.SaveState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlocked := st.Progression.UnlockedAbilities
	if unlocked == nil {
		unlocked = []string{}
	}
	abilities, err := json.Marshal(unlocked)
	if err != nil {
		return fmt.Errorf("encode abilities of save %q: %w", st.Slot, err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO saves (slot, gold, xp, level, ability_points, unlocked_abilities,
		                    hour, day, hunger, thirst, sleep, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (slot) DO UPDATE SET
		   gold = excluded.gold,
		   xp = excluded.xp,
		   level = excluded.level,
		   ability_points = excluded.ability_points,
		   unlocked_abilities = excluded.unlocked_abilities,
		   hour = excluded.hour,
		   day = excluded.day,
		   hunger = excluded.hunger,
		   thirst = excluded.thirst,
		   sleep = excluded.sleep,
		   updated_at = excluded.updated_at`,
		st.Slot, st.Gold,
		st.Progression.XP, st.Progression.Level, st.Progression.AbilityPoints, string(abilities),
		st.Upkeep.Hour, st.Upkeep.Day, st.Upkeep.Hunger, st.Upkeep.Thirst, st.Upkeep.Sleep,
		toMillis(st.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put save %q: %w", st.Slot, err)
	}
	return nil
}

// RecordRun stores one run outcome. A repeated id is ignored.
func (s *Store) RecordRun(ctx context.Context, rec gamestate.RunRecord) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO run_history (id, slot, outcome, depth, pickups, kinds_held, bonus_xp, duration_ms, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID.String(), rec.Slot, string(rec.Outcome), rec.Depth, rec.Pickups, rec.KindsHeld,
		rec.BonusXP, rec.DurationMs, toMillis(rec.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs of slot, newest first.
func (s *Store) RecentRuns(ctx context.Context, slot string, limit int) ([]gamestate.RunRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, slot, outcome, depth, pickups, kinds_held, bonus_xp, duration_ms, ended_at
		 FROM run_history WHERE slot = ?
		 ORDER BY ended_at DESC, id
		 LIMIT ?`, slot, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs of %q: %w", slot, err)
	}
	defer rows.Close()

	var out []gamestate.RunRecord
	for rows.Next() {
		var (
			rec     gamestate.RunRecord
			id      string
			outcome string
			endedAt int64
		)
		if err := rows.Scan(&id, &rec.Slot, &outcome, &rec.Depth, &rec.Pickups, &rec.KindsHeld,
			&rec.BonusXP, &rec.DurationMs, &endedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		rec.Outcome = gamestate.Outcome(outcome)
		rec.EndedAt = fromMillis(endedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs of %q: %w", slot, err)
	}
	return out, nil
}
