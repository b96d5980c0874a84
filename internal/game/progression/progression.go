// Package progression implements permanent leveling: XP, levels, ability
// points and the abilities bought with them.
//
// System is the only writer of gamestate.Progression.
package progression

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/buff"
	"github.com/udisondev/highsociety/internal/gamestate"
	"github.com/udisondev/highsociety/internal/model"
)

var (
	ErrAlreadyUnlocked    = errors.New("ability already unlocked")
	ErrNotEnoughPoints    = errors.New("not enough ability points")
	ErrMissingRequirement = errors.New("ability requirement not met")
)

// XP sources reported in XPGained.
const (
	SourceExtraction = "extraction"
	SourceCache      = "cache"
	SourceTrade      = "trade"
	SourceDiscovery  = "exploration"
	SourceObjective  = "objective"
)

const regenIntervalMs = 1000

// State is the HUD view of progression.
type State struct {
	XP                 int64
	Level              int
	XPProgress         float64
	XPForNextLevel     int64 // -1 at max level
	AbilityPoints      int
	UnlockedAbilities  []*data.Ability
	AvailableAbilities []*data.Ability
	Buffs              map[buff.Key]float64
}

// System owns XP, level, ability points and unlocked abilities.
// It outlives runs and persists through gamestate.GameState.
//
// Thread-safe: events are published after the lock is released.
type System struct {
	mu    sync.RWMutex
	bus   *event.Bus
	store *gamestate.GameState

	xp            int64
	level         int
	abilityPoints int
	unlocked      []string // unlock order
	buffs         buff.Table

	healer       model.Healable
	regenTimerMs int64
}

// NewSystem loads progression from store. Unknown ability ids in the save are dropped.
func NewSystem(bus *event.Bus, store *gamestate.GameState) *System {
	var p gamestate.Progression
	if store != nil {
		p = store.Progression()
	}
	s := &System{
		bus:           bus,
		store:         store,
		xp:            max(p.XP, 0),
		level:         min(max(p.Level, 1), data.MaxLevel),
		abilityPoints: max(p.AbilityPoints, 0),
	}
	for _, id := range p.UnlockedAbilities {
		a, err := data.AbilityByID(id)
		if err != nil {
			slog.Warn("dropping unknown ability from save", "id", id)
			continue
		}
		if !slices.Contains(s.unlocked, a.ID) {
			s.unlocked = append(s.unlocked, a.ID)
		}
	}
	s.recalculateLocked()
	s.persistLocked()

	slog.Info("progression loaded",
		"level", s.level,
		"xp", s.xp,
		"abilityPoints", s.abilityPoints,
		"abilities", len(s.unlocked))
	return s
}

// Listen subscribes the system to kill events on its bus.
// The returned func unsubscribes.
func (s *System) Listen() func() {
	return event.On(s.bus, func(e event.EnemyKilled) {
		s.OnEnemyKilled(e.EnemyType)
	})
}

// SetHealer sets the entity healed by the healthRegen ability buff.
func (s *System) SetHealer(h model.Healable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healer = h
	s.regenTimerMs = 0
}

// AddXP adds amount to the XP pool and levels up as many times as the
// table allows. Returns the number of levels gained.
// Non-positive amounts are ignored.
func (s *System) AddXP(amount int64, source string) int {
	if amount <= 0 {
		return 0
	}
	if source == "" {
		source = "unknown"
	}

	s.mu.Lock()
	oldLevel := s.level
	s.xp += amount

	var leveled []event.PlayerLeveled
	for {
		next, ok := data.NextLevelExp(s.level)
		if !ok || s.xp < next {
			break
		}
		s.level++
		s.abilityPoints++
		leveled = append(leveled, event.PlayerLeveled{Level: s.level, AbilityPoints: s.abilityPoints})
	}
	s.persistLocked()

	gained := event.XPGained{
		Amount:         amount,
		Source:         source,
		TotalXP:        s.xp,
		Level:          s.level,
		XPForNextLevel: s.xpForNextLevelLocked(),
		LeveledUp:      s.level > oldLevel,
	}
	s.mu.Unlock()

	for _, lv := range leveled {
		slog.Info("level up", "level", lv.Level, "abilityPoints", lv.AbilityPoints)
		s.bus.Publish(lv)
	}
	slog.Debug("xp gained", "amount", amount, "source", source, "total", gained.TotalXP, "next", gained.XPForNextLevel)
	s.bus.Publish(gained)

	return gained.Level - oldLevel
}

// OnEnemyKilled grants the kill reward for enemyType.
func (s *System) OnEnemyKilled(enemyType string) int {
	if enemyType == "" {
		enemyType = data.EnemyMelee
	}
	return s.AddXP(data.KillXP(enemyType), "kill_"+enemyType)
}

func (s *System) OnCacheOpened() int        { return s.AddXP(data.XPOpenCache, SourceCache) }
func (s *System) OnTradeCompleted() int     { return s.AddXP(data.XPCompleteTrade, SourceTrade) }
func (s *System) OnZoneDiscovered() int     { return s.AddXP(data.XPDiscoverZone, SourceDiscovery) }
func (s *System) OnObjectiveCompleted() int { return s.AddXP(data.XPCompleteObjective, SourceObjective) }

// XP returns the cumulative XP.
func (s *System) XP() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xp
}

// Level returns the current level.
func (s *System) Level() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// AbilityPoints returns the unspent ability points.
func (s *System) AbilityPoints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.abilityPoints
}

// XPForNextLevel returns the cumulative XP needed for the next level, -1 at max level.
func (s *System) XPForNextLevel() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xpForNextLevelLocked()
}

// XPIntoLevel returns the XP earned since reaching the current level.
func (s *System) XPIntoLevel() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xp - data.GetExpForLevel(s.level)
}

// XPProgress returns progress toward the next level in 0..1; 1 at max level.
func (s *System) XPProgress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xpProgressLocked()
}

// UnlockAbility spends ability points on id.
func (s *System) UnlockAbility(id string) (*data.Ability, error) {
	a, err := data.AbilityByID(id)
	if err != nil {
		slog.Warn("ability unlock rejected", "id", id, "error", err)
		return nil, err
	}

	s.mu.Lock()
	switch {
	case slices.Contains(s.unlocked, a.ID):
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyUnlocked, a.ID)
	case s.abilityPoints < a.Cost:
		have := s.abilityPoints
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s costs %d, have %d", ErrNotEnoughPoints, a.ID, a.Cost, have)
	case a.Requires != "" && !slices.Contains(s.unlocked, a.Requires):
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s requires %s", ErrMissingRequirement, a.ID, requirementName(a.Requires))
	}

	s.abilityPoints -= a.Cost
	s.unlocked = append(s.unlocked, a.ID)
	s.recalculateLocked()
	s.persistLocked()
	remaining := s.abilityPoints
	changed := event.BuffsChanged{Source: "abilities", Buffs: s.buffs.Map()}
	s.mu.Unlock()

	slog.Info("ability unlocked", "id", a.ID, "name", a.Name, "remainingPoints", remaining)
	s.bus.Publish(changed)
	s.bus.Publish(event.AbilityUnlocked{AbilityID: a.ID, Name: a.Name, RemainingPoints: remaining})
	return a, nil
}

// HasAbility reports whether id is unlocked.
func (s *System) HasAbility(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.unlocked, id)
}

// AvailableAbilities returns the locked abilities whose requirement is met,
// regardless of cost.
func (s *System) AvailableAbilities() []*data.Ability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.availableLocked()
}

// UnlockedAbilities returns the unlocked abilities in unlock order.
func (s *System) UnlockedAbilities() []*data.Ability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlockedLocked()
}

// GetBuff returns the permanent buff for k.
// Unknown keys return 1 when the name implies a multiplier, otherwise 0.
func (s *System) GetBuff(k buff.Key) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffs.Get(k)
}

// Buffs returns the resolved ability buffs.
func (s *System) Buffs() buff.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffs
}

// Update applies the healthRegen ability: floor(healthRegen) HP per full second.
func (s *System) Update(deltaMs int64) {
	s.mu.Lock()
	regen := s.buffs.Get(buff.HealthRegen)
	healer := s.healer
	if regen <= 0 || healer == nil {
		s.regenTimerMs = 0
		s.mu.Unlock()
		return
	}
	s.regenTimerMs += max(deltaMs, 0)
	ticks := s.regenTimerMs / regenIntervalMs
	s.regenTimerMs %= regenIntervalMs
	s.mu.Unlock()

	amount := int(math.Floor(regen))
	for range ticks {
		if amount <= 0 || healer.Health() >= healer.MaxHealth() {
			return
		}
		healer.Heal(amount)
	}
}

// State returns a HUD snapshot.
func (s *System) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		XP:                 s.xp,
		Level:              s.level,
		XPProgress:         s.xpProgressLocked(),
		XPForNextLevel:     s.xpForNextLevelLocked(),
		AbilityPoints:      s.abilityPoints,
		UnlockedAbilities:  s.unlockedLocked(),
		AvailableAbilities: s.availableLocked(),
		Buffs:              s.buffs.Map(),
	}
}

func (s *System) xpForNextLevelLocked() int64 {
	next, ok := data.NextLevelExp(s.level)
	if !ok {
		return -1
	}
	return next
}

func (s *System) xpProgressLocked() float64 {
	next, ok := data.NextLevelExp(s.level)
	if !ok {
		return 1
	}
	prev := data.GetExpForLevel(s.level)
	return min(max(float64(s.xp-prev)/float64(next-prev), 0), 1)
}

func (s *System) availableLocked() []*data.Ability {
	var out []*data.Ability
	for _, a := range data.Abilities() {
		if slices.Contains(s.unlocked, a.ID) {
			continue
		}
		if a.Requires != "" && !slices.Contains(s.unlocked, a.Requires) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *System) unlockedLocked() []*data.Ability {
	out := make([]*data.Ability, 0, len(s.unlocked))
	for _, id := range s.unlocked {
		if a, err := data.AbilityByID(id); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// recalculateLocked rebuilds ability buffs from the unlocked set.
func (s *System) recalculateLocked() {
	var mods []buff.Modifier
	for _, id := range s.unlocked {
		a, err := data.AbilityByID(id)
		if err != nil {
			continue
		}
		for k, v := range a.Effect {
			mods = append(mods, buff.Modifier{Key: k, Value: v, Stacks: 1})
		}
	}
	s.buffs = buff.Resolve(buff.AbilityKeys, mods...)
}

func (s *System) persistLocked() {
	if s.store == nil {
		return
	}
	s.store.SetProgression(gamestate.Progression{
		XP:                s.xp,
		Level:             s.level,
		AbilityPoints:     s.abilityPoints,
		UnlockedAbilities: slices.Clone(s.unlocked),
	})
}

func requirementName(id string) string {
	if a, err := data.AbilityByID(id); err == nil {
		return a.Name
	}
	return id
}
