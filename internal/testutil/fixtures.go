// Package testutil holds fixtures shared by the storage backend tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/highsociety/internal/gamestate"
)

// BaseTime is the fixed clock fixtures are stamped with. Millisecond
// precision survives every backend.
var BaseTime = time.UnixMilli(1_700_000_000_000).UTC()

// SaveFixture returns a save for slot with every field moved off its default.
func SaveFixture(slot string) gamestate.SaveState {
	return gamestate.SaveState{
		Slot: slot,
		Gold: 77,
		Progression: gamestate.Progression{
			XP:                130,
			Level:             3,
			AbilityPoints:     1,
			UnlockedAbilities: []string{"trade_1"},
		},
		Upkeep: gamestate.Upkeep{
			Hour:   23,
			Day:    4,
			Hunger: 9,
			Thirst: 60,
			Sleep:  80,
		},
		UpdatedAt: BaseTime.Add(500 * time.Millisecond),
	}
}

// RunFixture returns a run of slot that ended offset after BaseTime.
func RunFixture(slot string, outcome gamestate.Outcome, offset time.Duration) gamestate.RunRecord {
	rec := gamestate.RunRecord{
		ID:         uuid.New(),
		Slot:       slot,
		Outcome:    outcome,
		Depth:      2,
		Pickups:    3,
		KindsHeld:  2,
		DurationMs: 61_000,
		EndedAt:    BaseTime.Add(offset),
	}
	if outcome == gamestate.OutcomeExtracted {
		rec.BonusXP = 15
	}
	return rec
}
