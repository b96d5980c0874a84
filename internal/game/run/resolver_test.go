package run

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/buff"
	"github.com/udisondev/highsociety/internal/game/progression"
	"github.com/udisondev/highsociety/internal/game/upgrade"
	"github.com/udisondev/highsociety/internal/gamestate"
)

type memHistory struct {
	mu      sync.Mutex
	records []gamestate.RunRecord
	err     error
}

func (h *memHistory) RecordRun(_ context.Context, r gamestate.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, r)
	return nil
}

func (h *memHistory) RecentRuns(_ context.Context, slot string, limit int) ([]gamestate.RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []gamestate.RunRecord
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		if h.records[i].Slot == slot {
			out = append(out, h.records[i])
		}
	}
	return out, nil
}

type harness struct {
	bus     *event.Bus
	rec     *event.Recorder
	prog    *progression.System
	ups     *upgrade.Manager
	history *memHistory
	res     *Resolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := event.NewBus()
	rec := event.NewRecorder(bus)
	t.Cleanup(rec.Close)

	state := gamestate.New(gamestate.DefaultSaveState("test"))
	prog := progression.NewSystem(bus, state)
	ups := upgrade.NewManager(upgrade.DefaultConfig(), bus, state, prog)
	history := &memHistory{}
	res := NewResolver(bus, ups, history, "test")
	t.Cleanup(res.Listen(context.Background()))

	return &harness{bus: bus, rec: rec, prog: prog, ups: ups, history: history, res: res}
}

func (h *harness) add(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		ok, err := h.ups.AddUpgrade(id)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestResolver_ExtractionPaysXP(t *testing.T) {
	h := newHarness(t)
	h.add(t, data.UpgradeDamageBoost, data.UpgradeSpeedBoost, data.UpgradeHealthRegen, data.UpgradeStaminaEfficiency)
	firstRun := h.res.RunID()

	h.bus.Publish(event.ExtractionSucceeded{Direction: "west", Depth: 2, RunTimeMs: 61000})

	assert.Equal(t, int64(20), h.prog.XP())
	assert.Equal(t, 0, h.ups.TotalCollected())
	assert.True(t, h.ups.Buffs().IsNeutral())

	require.Len(t, h.history.records, 1)
	r := h.history.records[0]
	assert.Equal(t, firstRun, r.ID)
	assert.Equal(t, gamestate.OutcomeExtracted, r.Outcome)
	assert.Equal(t, 2, r.Depth)
	assert.Equal(t, 4, r.Pickups)
	assert.Equal(t, 4, r.KindsHeld)
	assert.Equal(t, int64(20), r.BonusXP)
	assert.Equal(t, int64(61000), r.DurationMs)
	assert.Equal(t, "test", r.Slot)

	assert.NotEqual(t, firstRun, h.res.RunID())
	xp, ok := event.Last[event.XPGained](h.rec)
	require.True(t, ok)
	assert.Equal(t, progression.SourceExtraction, xp.Source)
}

func TestResolver_LargeBonusLevelsUp(t *testing.T) {
	h := newHarness(t)
	for range 3 {
		h.add(t, data.UpgradeDamageBoost, data.UpgradeSpeedBoost, data.UpgradeStaminaEfficiency)
	}
	for range 5 {
		h.add(t, data.UpgradeHealthRegen)
	}
	h.add(t, data.UpgradeExtraDash)
	require.Equal(t, 15, h.ups.TotalCollected())

	h.bus.Publish(event.ExtractionSucceeded{Direction: "north", Depth: 1})

	assert.Equal(t, int64(75), h.prog.XP())
	assert.Equal(t, 2, h.prog.Level())
	assert.Equal(t, 1, h.rec.Count(event.KindPlayerLeveled))
}

func TestResolver_DeathLosesUpgrades(t *testing.T) {
	h := newHarness(t)
	h.add(t, data.UpgradeSpeedBoost, data.UpgradeSpeedBoost, data.UpgradeSpeedBoost,
		data.UpgradeHealthRegen, data.UpgradeHealthRegen)

	h.bus.Publish(event.PlayerDied{Depth: 3, RunTimeMs: 9000})

	assert.Equal(t, int64(0), h.prog.XP())
	assert.Equal(t, 0, h.ups.ActiveCount())
	assert.Equal(t, 1.0, h.ups.GetBuff(buff.SpeedMultiplier))

	lost, ok := event.Last[event.UpgradesLost](h.rec)
	require.True(t, ok)
	assert.Equal(t, 2, lost.Count)

	r, ok := h.res.LastRecord()
	require.True(t, ok)
	assert.Equal(t, gamestate.OutcomeDied, r.Outcome)
	assert.Equal(t, 5, r.Pickups)
	assert.Equal(t, 2, r.KindsHeld)
	assert.Equal(t, int64(0), r.BonusXP)
}

func TestResolver_FleeKeepsUpgrades(t *testing.T) {
	h := newHarness(t)
	h.add(t, data.UpgradeDamageBoost, data.UpgradeDamageBoost)

	h.bus.Publish(event.RunFled{Depth: 1, RunTimeMs: 4000})

	assert.Equal(t, 2, h.ups.Stacks(data.UpgradeDamageBoost))
	assert.Equal(t, 2, h.ups.TotalCollected())
	assert.Equal(t, int64(0), h.prog.XP())
	assert.Equal(t, 0, h.rec.Count(event.KindUpgradesLost))
	assert.Equal(t, 0, h.rec.Count(event.KindExtractionBonus))

	require.Len(t, h.history.records, 1)
	assert.Equal(t, gamestate.OutcomeFled, h.history.records[0].Outcome)
}

func TestResolver_HistoryErrorIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.history.err = errors.New("db down")
	h.add(t, data.UpgradeDamageBoost)

	assert.NotPanics(t, func() {
		h.bus.Publish(event.ExtractionSucceeded{Direction: "east"})
	})
	assert.Equal(t, int64(5), h.prog.XP())
}

func TestResolver_NilHistory(t *testing.T) {
	bus := event.NewBus()
	ups := upgrade.NewManager(upgrade.DefaultConfig(), bus, nil, nil)
	res := NewResolver(bus, ups, nil, "x")
	stop := res.Listen(context.Background())

	bus.Publish(event.PlayerDied{})
	r, ok := res.LastRecord()
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, r.ID)

	stop()
	bus.Publish(event.PlayerDied{Depth: 9})
	r, _ = res.LastRecord()
	assert.Equal(t, 0, r.Depth)
}
