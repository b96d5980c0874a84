// Package upgrade owns the temporary upgrades collected during one run.
package upgrade

import (
	"log/slog"
	"math"
	"sync"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/buff"
	"github.com/udisondev/highsociety/internal/gamestate"
	"github.com/udisondev/highsociety/internal/model"
)

// XPGranter receives the extraction bonus.
// Implemented by progression.System.
type XPGranter interface {
	AddXP(amount int64, source string) int
}

// ModifierSink receives the HUD modifier list.
// Implemented by gamestate.GameState.
type ModifierSink interface {
	SetActiveModifiers(mods []gamestate.ActiveModifier)
}

// Config holds the run tuning values.
type Config struct {
	ExtractionXPPerUpgrade int64
	RegenIntervalMs        int64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ExtractionXPPerUpgrade: 5,
		RegenIntervalMs:        1000,
	}
}

type instance struct {
	kind        *data.UpgradeKind
	stacks      int
	appliedAtMs int64
}

func (in *instance) expired(nowMs int64) bool {
	return in.kind.Timed() && nowMs-in.appliedAtMs >= in.kind.DurationMs
}

func (in *instance) remainingMs(nowMs int64) int64 {
	if !in.kind.Timed() {
		return 0
	}
	return max(in.kind.DurationMs-(nowMs-in.appliedAtMs), 0)
}

// Manager tracks the active upgrade instances and the resolved run buffs.
// The manager keeps its own clock, advanced only by Update.
//
// Thread-safe: events are published after the lock is released,
// so subscribers may call back into the manager.
type Manager struct {
	mu  sync.RWMutex
	cfg Config

	bus    *event.Bus
	sink   ModifierSink
	xp     XPGranter
	healer model.Healable

	nowMs     int64
	active    map[string]*instance
	order     []string // pickup order, for the HUD
	buffs     buff.Table
	collected int

	regenTimerMs int64
	lastShown    int
}

// NewManager creates a Manager with no active upgrades.
// Any collaborator may be nil.
func NewManager(cfg Config, bus *event.Bus, sink ModifierSink, xp XPGranter) *Manager {
	if cfg.RegenIntervalMs <= 0 {
		cfg.RegenIntervalMs = DefaultConfig().RegenIntervalMs
	}
	if cfg.ExtractionXPPerUpgrade < 0 {
		cfg.ExtractionXPPerUpgrade = 0
	}
	return &Manager{
		cfg:    cfg,
		bus:    bus,
		sink:   sink,
		xp:     xp,
		active: make(map[string]*instance, 8),
		buffs:  buff.Resolve(buff.RunKeys),
	}
}

// SetHealer sets the entity healed by regeneration.
func (m *Manager) SetHealer(h model.Healable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healer = h
}

// NowMs returns the manager clock.
func (m *Manager) NowMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nowMs
}

// AddUpgrade grants one unit of the named kind.
// Returns false, nil when the kind is already at its stack cap,
// and false, data.ErrUnknownUpgrade when the id is not in the catalog.
func (m *Manager) AddUpgrade(id string) (bool, error) {
	kind, err := data.UpgradeByID(id)
	if err != nil {
		slog.Warn("upgrade rejected", "id", id, "error", err)
		return false, err
	}

	m.mu.Lock()
	existing := m.active[kind.ID]
	if existing != nil && existing.stacks >= kind.Cap() {
		stacks := existing.stacks
		m.mu.Unlock()

		m.bus.Publish(event.UpgradeMaxed{UpgradeID: kind.ID, Name: kind.Name, Stacks: stacks})
		return false, nil
	}

	if existing != nil {
		existing.stacks++
	} else {
		existing = &instance{kind: kind, stacks: 1, appliedAtMs: m.nowMs}
		m.active[kind.ID] = existing
		m.order = append(m.order, kind.ID)
	}
	m.collected++
	m.recalculateLocked()

	gained := event.UpgradeGained{
		UpgradeID:   kind.ID,
		Name:        kind.Name,
		Stacks:      existing.stacks,
		TotalActive: len(m.active),
	}
	changed := m.buffsChangedLocked()
	m.mu.Unlock()

	slog.Debug("upgrade gained", "id", kind.ID, "stacks", gained.Stacks, "active", gained.TotalActive)
	m.bus.Publish(gained)
	m.bus.Publish(changed)
	return true, nil
}

// Update advances the clock by deltaMs, expires timed upgrades,
// refreshes the HUD list and applies health regeneration.
func (m *Manager) Update(deltaMs int64) {
	if deltaMs < 0 {
		deltaMs = 0
	}

	m.mu.Lock()
	m.nowMs += deltaMs

	var expired []event.Event
	for i := 0; i < len(m.order); {
		id := m.order[i]
		in := m.active[id]
		if !in.expired(m.nowMs) {
			i++
			continue
		}
		delete(m.active, id)
		m.order = append(m.order[:i], m.order[i+1:]...)
		expired = append(expired, event.UpgradeExpired{UpgradeID: id, Name: in.kind.Name})
	}

	var changed event.Event
	if len(expired) > 0 {
		m.recalculateLocked()
		changed = m.buffsChangedLocked()
	}

	mods, emit := m.snapshotLocked()
	heals := m.regenLocked(deltaMs)
	healer := m.healer
	sink := m.sink
	m.mu.Unlock()

	for _, e := range expired {
		m.bus.Publish(e)
	}
	if changed != nil {
		m.bus.Publish(changed)
	}
	if emit && sink != nil {
		sink.SetActiveModifiers(mods)
	}
	for _, amount := range heals {
		if healer.Health() < healer.MaxHealth() {
			healer.Heal(amount)
		}
	}
}

// GetBuff returns the resolved value for k, or its neutral value when absent.
func (m *Manager) GetBuff(k buff.Key) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffs.Get(k)
}

// Buffs returns the current resolved table.
func (m *Manager) Buffs() buff.Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffs
}

// TotalCollected returns the successful pickups since the last run reset.
func (m *Manager) TotalCollected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collected
}

// HasUpgrade reports whether the kind is currently held.
func (m *Manager) HasUpgrade(id string) bool {
	return m.Stacks(id) > 0
}

// Stacks returns the stack count held for id, 0 when absent or unknown.
func (m *Manager) Stacks(id string) int {
	kind, err := data.UpgradeByID(id)
	if err != nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if in := m.active[kind.ID]; in != nil {
		return in.stacks
	}
	return 0
}

// ActiveCount returns the number of distinct kinds held.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// ActiveUpgrades returns the held upgrades in pickup order.
func (m *Manager) ActiveUpgrades() []gamestate.ActiveModifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mods, _ := m.snapshotRowsLocked()
	return mods
}

// OnExtractionFailed clears the run with no reward.
// Returns the number of distinct kinds lost.
func (m *Manager) OnExtractionFailed() int {
	m.mu.Lock()
	lost := len(m.active)
	m.resetLocked()
	changed := m.buffsChangedLocked()
	sink := m.sink
	m.mu.Unlock()

	if sink != nil {
		sink.SetActiveModifiers(nil)
	}
	m.bus.Publish(changed)
	m.bus.Publish(event.UpgradesLost{Count: lost, Reason: "death"})
	return lost
}

// OnExtractionSuccess converts the pickups of this run into XP and clears the run.
// Returns the bonus granted.
func (m *Manager) OnExtractionSuccess() int64 {
	m.mu.Lock()
	upgrades := m.collected
	bonus := int64(upgrades) * m.cfg.ExtractionXPPerUpgrade
	xp := m.xp
	m.mu.Unlock()

	if bonus > 0 && xp != nil {
		xp.AddXP(bonus, "extraction")
	}

	m.mu.Lock()
	m.resetLocked()
	changed := m.buffsChangedLocked()
	sink := m.sink
	m.mu.Unlock()

	if sink != nil {
		sink.SetActiveModifiers(nil)
	}
	m.bus.Publish(changed)
	if bonus > 0 {
		m.bus.Publish(event.ExtractionBonus{Upgrades: upgrades, BonusXP: bonus})
	}
	return bonus
}

func (m *Manager) resetLocked() {
	clear(m.active)
	m.order = m.order[:0]
	m.collected = 0
	m.regenTimerMs = 0
	m.lastShown = 0
	m.recalculateLocked()
}

// recalculateLocked rebuilds the table from the active set.
// Always from scratch, never patched.
func (m *Manager) recalculateLocked() {
	mods := make([]buff.Modifier, 0, len(m.active))
	for _, id := range m.order {
		in := m.active[id]
		mods = append(mods, in.kind.Modifiers(in.stacks)...)
	}
	m.buffs = buff.Resolve(buff.RunKeys, mods...)
}

func (m *Manager) buffsChangedLocked() event.BuffsChanged {
	return event.BuffsChanged{Source: "run", Buffs: m.buffs.Map()}
}

func (m *Manager) snapshotRowsLocked() ([]gamestate.ActiveModifier, bool) {
	mods := make([]gamestate.ActiveModifier, 0, len(m.order))
	for _, id := range m.order {
		in := m.active[id]
		mods = append(mods, gamestate.ActiveModifier{
			ID:          in.kind.ID,
			Name:        in.kind.Name,
			Color:       in.kind.Color,
			Stacks:      in.stacks,
			Timed:       in.kind.Timed(),
			RemainingMs: in.remainingMs(m.nowMs),
			DurationMs:  in.kind.DurationMs,
		})
	}
	return mods, len(mods) > 0
}

// snapshotLocked returns the HUD list and whether it should be written.
// An empty list is written once after the last upgrade goes away.
func (m *Manager) snapshotLocked() ([]gamestate.ActiveModifier, bool) {
	mods, nonEmpty := m.snapshotRowsLocked()
	emit := nonEmpty || m.lastShown > 0
	if emit {
		m.lastShown = len(mods)
	}
	return mods, emit
}

// regenLocked returns one heal amount per full interval elapsed.
func (m *Manager) regenLocked(deltaMs int64) []int {
	regen := m.buffs.Get(buff.HealthRegenPerSecond)
	if regen <= 0 || m.healer == nil {
		m.regenTimerMs = 0
		return nil
	}
	amount := int(math.Floor(regen))
	m.regenTimerMs += deltaMs

	var heals []int
	for m.regenTimerMs >= m.cfg.RegenIntervalMs {
		m.regenTimerMs -= m.cfg.RegenIntervalMs
		if amount > 0 {
			heals = append(heals, amount)
		}
	}
	return heals
}
