package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/highsociety/internal/gamestate"
)

// RunRepository реализует gamestate.RunHistory для PostgreSQL.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository создаёт новый PostgreSQL repository для истории забегов.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// RecordRun сохраняет итог забега. Повторная запись с тем же id игнорируется.
func (r *RunRepository) RecordRun(ctx context.Context, rec gamestate.RunRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO run_history (id, slot, outcome, depth, pickups, kinds_held, bonus_xp, duration_ms, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID.String(), rec.Slot, string(rec.Outcome), rec.Depth, rec.Pickups, rec.KindsHeld,
		rec.BonusXP, rec.DurationMs, rec.EndedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", rec.ID, err)
	}
	return nil
}

// RecentRuns возвращает до limit последних забегов слота, новые первыми.
func (r *RunRepository) RecentRuns(ctx context.Context, slot string, limit int) ([]gamestate.RunRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, slot, outcome, depth, pickups, kinds_held, bonus_xp, duration_ms, ended_at
		 FROM run_history WHERE slot = $1
		 ORDER BY ended_at DESC, id
		 LIMIT $2`, slot, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs of %q: %w", slot, err)
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
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing run id %q: %w", id, err)
		}
		rec.Outcome = gamestate.Outcome(outcome)
		rec.EndedAt = time.UnixMilli(endedAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs of %q: %w", slot, err)
	}
	return out, nil
}
