package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/highsociety/internal/gamestate"
)

// SaveRepository реализует gamestate.Repository для PostgreSQL.
type SaveRepository struct {
	pool *pgxpool.Pool
}

// NewSaveRepository создаёт новый PostgreSQL repository для save слотов.
func NewSaveRepository(pool *pgxpool.Pool) *SaveRepository {
	return &SaveRepository{pool: pool}
}

// LoadSave возвращает save слот.
// Возвращает nil, nil если слот ещё не сохранялся.
func (r *SaveRepository) LoadSave(ctx context.Context, slot string) (*gamestate.SaveState, error) {
	var (
		s         gamestate.SaveState
		abilities string
		updatedAt int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT slot, gold, xp, level, ability_points, unlocked_abilities,
		        hour, day, hunger, thirst, sleep, updated_at
		 FROM saves WHERE slot = $1`, slot,
	).Scan(
		&s.Slot, &s.Gold,
		&s.Progression.XP, &s.Progression.Level, &s.Progression.AbilityPoints, &abilities,
		&s.Upkeep.Hour, &s.Upkeep.Day, &s.Upkeep.Hunger, &s.Upkeep.Thirst, &s.Upkeep.Sleep,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying save %q: %w", slot, err)
	}

	if err := json.Unmarshal([]byte(abilities), &s.Progression.UnlockedAbilities); err != nil {
		return nil, fmt.Errorf("decoding abilities of save %q: %w", slot, err)
	}
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &s, nil
}

// StoreSave создаёт или перезаписывает save слот (UPSERT).
func (r *SaveRepository) StoreSave(ctx context.Context, s gamestate.SaveState) error {
	abilities, err := json.Marshal(nonNil(s.Progression.UnlockedAbilities))
	if err != nil {
		return fmt.Errorf("encoding abilities of save %q: %w", s.Slot, err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO saves (slot, gold, xp, level, ability_points, unlocked_abilities,
		                    hour, day, hunger, thirst, sleep, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (slot) DO UPDATE SET
		   gold = EXCLUDED.gold,
		   xp = EXCLUDED.xp,
		   level = EXCLUDED.level,
		   ability_points = EXCLUDED.ability_points,
		   unlocked_abilities = EXCLUDED.unlocked_abilities,
		   hour = EXCLUDED.hour,
		   day = EXCLUDED.day,
		   hunger = EXCLUDED.hunger,
		   thirst = EXCLUDED.thirst,
		   sleep = EXCLUDED.sleep,
		   updated_at = EXCLUDED.updated_at`,
		s.Slot, s.Gold,
		s.Progression.XP, s.Progression.Level, s.Progression.AbilityPoints, string(abilities),
		s.Upkeep.Hour, s.Upkeep.Day, s.Upkeep.Hunger, s.Upkeep.Thirst, s.Upkeep.Sleep,
		s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storing save %q: %w", s.Slot, err)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
