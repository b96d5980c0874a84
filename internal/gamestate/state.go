package gamestate

import (
	"slices"
	"sync"
)

// ActiveModifier is one row of the HUD modifier list.
type ActiveModifier struct {
	ID          string
	Name        string
	Color       uint32
	Stacks      int
	Timed       bool
	RemainingMs int64 // meaningful only when Timed
	DurationMs  int64
}

// GameState is the explicit replacement for a process-wide registry.
// It is created once per session and passed to every system that needs it.
//
// Thread-safe: the game loop writes while autosave reads.
type GameState struct {
	mu              sync.RWMutex
	save            SaveState
	activeModifiers []ActiveModifier
	modifierWrites  int
}

// New creates a GameState seeded from a loaded save.
func New(s SaveState) *GameState {
	s.Normalize()
	return &GameState{save: cloneSave(s)}
}

// Snapshot returns a deep copy of the persistent save.
func (g *GameState) Snapshot() SaveState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneSave(g.save)
}

// Slot returns the save slot name.
func (g *GameState) Slot() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.save.Slot
}

// Progression returns a copy of the persisted progression fields.
func (g *GameState) Progression() Progression {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneProgression(g.save.Progression)
}

// SetProgression stores the progression fields. Only the progression system calls this.
func (g *GameState) SetProgression(p Progression) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.save.Progression = cloneProgression(p)
}

// Upkeep returns the survival stats.
func (g *GameState) Upkeep() Upkeep {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.save.Upkeep
}

// SetUpkeep stores the survival stats.
func (g *GameState) SetUpkeep(u Upkeep) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.save.Upkeep = u
}

// Gold returns the carried gold.
func (g *GameState) Gold() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.save.Gold
}

// AddGold adds (or with a negative delta, removes) gold, never below zero.
func (g *GameState) AddGold(delta int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.save.Gold = max(g.save.Gold+delta, 0)
	return g.save.Gold
}

// ActiveModifiers returns a copy of the last broadcast modifier list.
func (g *GameState) ActiveModifiers() []ActiveModifier {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.activeModifiers)
}

// SetActiveModifiers replaces the HUD modifier list.
func (g *GameState) SetActiveModifiers(mods []ActiveModifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeModifiers = slices.Clone(mods)
	g.modifierWrites++
}

// ModifierWrites counts SetActiveModifiers calls (HUD refreshes).
func (g *GameState) ModifierWrites() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.modifierWrites
}

func cloneSave(s SaveState) SaveState {
	s.Progression = cloneProgression(s.Progression)
	return s
}

func cloneProgression(p Progression) Progression {
	p.UnlockedAbilities = slices.Clone(p.UnlockedAbilities)
	if p.UnlockedAbilities == nil {
		p.UnlockedAbilities = []string{}
	}
	return p
}
