// Package gamestate holds the long-lived game state that outlives any single
// overworld visit: the persistent save (progression, upkeep, gold) and the
// HUD-facing snapshot of active run modifiers.
package gamestate

import (
	"context"
	"fmt"
	"time"
)

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "main"

// Progression is the persistent XP/level record.
type Progression struct {
	XP                int64
	Level             int
	AbilityPoints     int
	UnlockedAbilities []string
}

// Upkeep holds the survival stats and the world clock.
type Upkeep struct {
	Hour   int // 0..23
	Day    int
	Hunger int // 0..100
	Thirst int // 0..100
	Sleep  int // 0..100
}

// SaveState is everything written to persistent storage for one slot.
type SaveState struct {
	Slot        string
	Gold        int64
	Progression Progression
	Upkeep      Upkeep
	UpdatedAt   time.Time
}

// DefaultSaveState returns a fresh save for slot.
func DefaultSaveState(slot string) SaveState {
	if slot == "" {
		slot = DefaultSlot
	}
	return SaveState{
		Slot: slot,
		Progression: Progression{
			Level: 1,
		},
		Upkeep: Upkeep{
			Hour:   12,
			Day:    1,
			Hunger: 100,
			Thirst: 100,
			Sleep:  100,
		},
	}
}

// Normalize replaces missing or out-of-range fields with defaults.
// Absent keys are normal for a first run, so this never fails.
func (s *SaveState) Normalize() {
	def := DefaultSaveState(s.Slot)
	if s.Slot == "" {
		s.Slot = def.Slot
	}
	if s.Progression.Level < 1 {
		s.Progression.Level = 1
	}
	if s.Progression.XP < 0 {
		s.Progression.XP = 0
	}
	if s.Progression.AbilityPoints < 0 {
		s.Progression.AbilityPoints = 0
	}
	if s.Progression.UnlockedAbilities == nil {
		s.Progression.UnlockedAbilities = []string{}
	}
	if s.Upkeep.Day < 1 {
		s.Upkeep = def.Upkeep
	}
	s.Upkeep.Hour = ((s.Upkeep.Hour % 24) + 24) % 24
	s.Upkeep.Hunger = clampStat(s.Upkeep.Hunger)
	s.Upkeep.Thirst = clampStat(s.Upkeep.Thirst)
	s.Upkeep.Sleep = clampStat(s.Upkeep.Sleep)
}

// Repository persists save slots.
// Implemented by the savefile, sqlite and db (postgres) packages.
type Repository interface {
	// LoadSave returns nil, nil when the slot has never been saved.
	LoadSave(ctx context.Context, slot string) (*SaveState, error)
	StoreSave(ctx context.Context, s SaveState) error
}

// Load reads slot from repo, falling back to defaults when it does not exist.
func Load(ctx context.Context, repo Repository, slot string) (SaveState, error) {
	s, err := repo.LoadSave(ctx, slot)
	if err != nil {
		return DefaultSaveState(slot), fmt.Errorf("loading save %q: %w", slot, err)
	}
	if s == nil {
		return DefaultSaveState(slot), nil
	}
	s.Slot = slot
	s.Normalize()
	return *s, nil
}

// Save stamps UpdatedAt and writes s to repo.
func Save(ctx context.Context, repo Repository, s SaveState) error {
	s.Normalize()
	s.UpdatedAt = time.Now().UTC()
	if err := repo.StoreSave(ctx, s); err != nil {
		return fmt.Errorf("storing save %q: %w", s.Slot, err)
	}
	return nil
}

func clampStat(v int) int {
	return min(max(v, 0), 100)
}
