package gamestate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	saves map[string]SaveState
	err   error
}

func (m *memRepo) LoadSave(_ context.Context, slot string) (*SaveState, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.saves[slot]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memRepo) StoreSave(_ context.Context, s SaveState) error {
	if m.err != nil {
		return m.err
	}
	m.saves[s.Slot] = s
	return nil
}

func TestLoad_MissingSlotReturnsDefaults(t *testing.T) {
	repo := &memRepo{saves: map[string]SaveState{}}

	s, err := Load(context.Background(), repo, "alpha")
	require.NoError(t, err)
	assert.Equal(t, DefaultSaveState("alpha"), s)
	assert.Equal(t, 1, s.Progression.Level)
	assert.Equal(t, 100, s.Upkeep.Hunger)
}

func TestLoad_NormalizesStoredValues(t *testing.T) {
	repo := &memRepo{saves: map[string]SaveState{
		"alpha": {
			Slot:        "alpha",
			Progression: Progression{XP: -5, Level: 0, AbilityPoints: -1},
			Upkeep:      Upkeep{Hour: 27, Day: 3, Hunger: 140, Thirst: -4, Sleep: 50},
		},
	}}

	s, err := Load(context.Background(), repo, "alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Progression.XP)
	assert.Equal(t, 1, s.Progression.Level)
	assert.Equal(t, 0, s.Progression.AbilityPoints)
	assert.NotNil(t, s.Progression.UnlockedAbilities)
	assert.Equal(t, 3, s.Upkeep.Hour)
	assert.Equal(t, 100, s.Upkeep.Hunger)
	assert.Equal(t, 0, s.Upkeep.Thirst)
}

func TestLoad_RepositoryError(t *testing.T) {
	repo := &memRepo{err: errors.New("disk on fire")}

	s, err := Load(context.Background(), repo, "alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `loading save "alpha"`)
	assert.Equal(t, DefaultSaveState("alpha"), s)
}

func TestSave_StampsUpdatedAt(t *testing.T) {
	repo := &memRepo{saves: map[string]SaveState{}}
	s := DefaultSaveState("beta")
	s.Progression.XP = 77

	require.NoError(t, Save(context.Background(), repo, s))
	stored := repo.saves["beta"]
	assert.Equal(t, int64(77), stored.Progression.XP)
	assert.False(t, stored.UpdatedAt.IsZero())
}

func TestGameState_CopiesDoNotAlias(t *testing.T) {
	g := New(DefaultSaveState(""))
	assert.Equal(t, DefaultSlot, g.Slot())

	g.SetProgression(Progression{XP: 10, Level: 2, UnlockedAbilities: []string{"damage_1"}})
	p := g.Progression()
	p.UnlockedAbilities[0] = "tampered"
	assert.Equal(t, []string{"damage_1"}, g.Progression().UnlockedAbilities)

	mods := []ActiveModifier{{ID: "damage_boost", Stacks: 1}}
	g.SetActiveModifiers(mods)
	mods[0].Stacks = 99
	assert.Equal(t, 1, g.ActiveModifiers()[0].Stacks)
	assert.Equal(t, 1, g.ModifierWrites())
}

func TestGameState_Gold(t *testing.T) {
	g := New(DefaultSaveState("main"))
	assert.Equal(t, int64(50), g.AddGold(50))
	assert.Equal(t, int64(0), g.AddGold(-80))
	assert.Equal(t, int64(0), g.Gold())
}
