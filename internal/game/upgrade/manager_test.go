package upgrade

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/buff"
	"github.com/udisondev/highsociety/internal/gamestate"
)

type fakeHealer struct {
	health, maxHealth int
	heals             []int
}

func (h *fakeHealer) Heal(amount int) int {
	h.heals = append(h.heals, amount)
	applied := min(amount, h.maxHealth-h.health)
	h.health += applied
	return applied
}

func (h *fakeHealer) Health() int    { return h.health }
func (h *fakeHealer) MaxHealth() int { return h.maxHealth }

type fakeXP struct {
	total   int64
	sources []string
}

func (f *fakeXP) AddXP(amount int64, source string) int {
	f.total += amount
	f.sources = append(f.sources, source)
	return 0
}

type fixture struct {
	mgr   *Manager
	bus   *event.Bus
	rec   *event.Recorder
	state *gamestate.GameState
	xp    *fakeXP
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := event.NewBus()
	rec := event.NewRecorder(bus)
	t.Cleanup(rec.Close)
	state := gamestate.New(gamestate.DefaultSaveState("test"))
	xp := &fakeXP{}
	return &fixture{
		mgr:   NewManager(DefaultConfig(), bus, state, xp),
		bus:   bus,
		rec:   rec,
		state: state,
		xp:    xp,
	}
}

func mustAdd(t *testing.T, m *Manager, id string) {
	t.Helper()
	ok, err := m.AddUpgrade(id)
	require.NoError(t, err)
	require.True(t, ok, "add %s", id)
}

func TestManager_DefaultBuffs(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 1.0, f.mgr.GetBuff(buff.DamageMultiplier))
	assert.Equal(t, 1.0, f.mgr.GetBuff(buff.SpeedMultiplier))
	assert.Equal(t, 1.0, f.mgr.GetBuff(buff.StaminaCostMultiplier))
	assert.Equal(t, 0.0, f.mgr.GetBuff(buff.HealthRegenPerSecond))
	assert.Equal(t, 0.0, f.mgr.GetBuff(buff.ExtraDashCharges))
	assert.Equal(t, 1.0, f.mgr.GetBuff(buff.Key("unusedMultiplier")))
	assert.Equal(t, 0.0, f.mgr.GetBuff(buff.Key("unusedBonus")))
	assert.True(t, f.mgr.Buffs().IsNeutral())
}

func TestManager_DamageStacksCompound(t *testing.T) {
	f := newFixture(t)

	for range 3 {
		mustAdd(t, f.mgr, data.UpgradeDamageBoost)
	}
	assert.InDelta(t, 1.953125, f.mgr.GetBuff(buff.DamageMultiplier), 1e-9)

	ok, err := f.mgr.AddUpgrade(data.UpgradeDamageBoost)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 1.953125, f.mgr.GetBuff(buff.DamageMultiplier), 1e-9)
	assert.Equal(t, 3, f.mgr.Stacks(data.UpgradeDamageBoost))
	assert.Equal(t, 3, f.mgr.TotalCollected())

	maxed, found := event.Last[event.UpgradeMaxed](f.rec)
	require.True(t, found)
	assert.Equal(t, data.UpgradeDamageBoost, maxed.UpgradeID)
	assert.Equal(t, 3, maxed.Stacks)

	gained := event.All[event.UpgradeGained](f.rec)
	require.Len(t, gained, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{gained[0].Stacks, gained[1].Stacks, gained[2].Stacks})
	assert.Equal(t, 1, gained[2].TotalActive)
}

func TestManager_UnknownUpgrade(t *testing.T) {
	f := newFixture(t)

	ok, err := f.mgr.AddUpgrade("damage_bost")
	require.ErrorIs(t, err, data.ErrUnknownUpgrade)
	assert.False(t, ok)
	assert.Equal(t, 0, f.mgr.TotalCollected())
	assert.Equal(t, 0, f.rec.Count(event.KindUpgradeGained))
	assert.Equal(t, 0, f.rec.Count(event.KindBuffsChanged))
}

func TestManager_IDLookupIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	mustAdd(t, f.mgr, " Speed_Boost ")
	assert.True(t, f.mgr.HasUpgrade(data.UpgradeSpeedBoost))
	assert.InDelta(t, 1.2, f.mgr.GetBuff(buff.SpeedMultiplier), 1e-9)
	assert.False(t, f.mgr.HasUpgrade("nope"))
}

func TestManager_TimedUpgradeExpires(t *testing.T) {
	f := newFixture(t)

	mustAdd(t, f.mgr, data.UpgradeExtraDash)
	assert.Equal(t, 1.0, f.mgr.GetBuff(buff.ExtraDashCharges))

	f.mgr.Update(45000)
	assert.Equal(t, 0.0, f.mgr.GetBuff(buff.ExtraDashCharges))
	assert.False(t, f.mgr.HasUpgrade(data.UpgradeExtraDash))

	expired, found := event.Last[event.UpgradeExpired](f.rec)
	require.True(t, found)
	assert.Equal(t, data.UpgradeExtraDash, expired.UpgradeID)
}

func TestManager_TimedBoundary(t *testing.T) {
	f := newFixture(t)
	f.mgr.Update(1234)

	mustAdd(t, f.mgr, data.UpgradeExtraDash)
	kind, err := data.UpgradeByID(data.UpgradeExtraDash)
	require.NoError(t, err)

	f.mgr.Update(kind.DurationMs - 1)
	assert.True(t, f.mgr.HasUpgrade(data.UpgradeExtraDash))
	mods := f.mgr.ActiveUpgrades()
	require.Len(t, mods, 1)
	assert.Equal(t, int64(1), mods[0].RemainingMs)

	f.mgr.Update(1)
	assert.False(t, f.mgr.HasUpgrade(data.UpgradeExtraDash))
}

func TestManager_RestackKeepsOriginalExpiry(t *testing.T) {
	f := newFixture(t)

	mustAdd(t, f.mgr, data.UpgradeExtraDash)
	f.mgr.Update(30000)
	mustAdd(t, f.mgr, data.UpgradeExtraDash)
	assert.Equal(t, 2.0, f.mgr.GetBuff(buff.ExtraDashCharges))

	f.mgr.Update(15000)
	assert.False(t, f.mgr.HasUpgrade(data.UpgradeExtraDash))
	assert.Equal(t, 0.0, f.mgr.GetBuff(buff.ExtraDashCharges))
}

func TestManager_ExpiryRecomputesOnceAndKeepsPermanent(t *testing.T) {
	f := newFixture(t)
	mustAdd(t, f.mgr, data.UpgradeDamageBoost)
	mustAdd(t, f.mgr, data.UpgradeExtraDash)
	f.rec.Reset()

	f.mgr.Update(60000)
	assert.Equal(t, 1, f.rec.Count(event.KindUpgradeExpired))
	assert.Equal(t, 1, f.rec.Count(event.KindBuffsChanged))
	assert.True(t, f.mgr.HasUpgrade(data.UpgradeDamageBoost))
	assert.InDelta(t, 1.25, f.mgr.GetBuff(buff.DamageMultiplier), 1e-9)
}

func TestManager_ExtractionSuccessGrantsBonus(t *testing.T) {
	f := newFixture(t)
	mustAdd(t, f.mgr, data.UpgradeDamageBoost)
	mustAdd(t, f.mgr, data.UpgradeSpeedBoost)
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)
	mustAdd(t, f.mgr, data.UpgradeStaminaEfficiency)
	require.Equal(t, 4, f.mgr.TotalCollected())

	bonus := f.mgr.OnExtractionSuccess()
	assert.Equal(t, int64(20), bonus)
	assert.Equal(t, int64(20), f.xp.total)
	assert.Equal(t, []string{"extraction"}, f.xp.sources)
	assert.Equal(t, 0, f.mgr.TotalCollected())
	assert.Equal(t, 0, f.mgr.ActiveCount())
	assert.True(t, f.mgr.Buffs().IsNeutral())

	ev, found := event.Last[event.ExtractionBonus](f.rec)
	require.True(t, found)
	assert.Equal(t, 4, ev.Upgrades)
	assert.Equal(t, int64(20), ev.BonusXP)
	assert.Equal(t, 0, f.rec.Count(event.KindUpgradesLost))
}

func TestManager_ExtractionBonusCountsStacks(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		mustAdd(t, f.mgr, data.UpgradeDamageBoost)
	}
	_, _ = f.mgr.AddUpgrade(data.UpgradeDamageBoost) // maxed, not counted

	assert.Equal(t, int64(15), f.mgr.OnExtractionSuccess())
}

func TestManager_EmptyExtraction(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, int64(0), f.mgr.OnExtractionSuccess())
	assert.Equal(t, int64(0), f.xp.total)
	assert.Empty(t, f.xp.sources)
	assert.Equal(t, 0, f.rec.Count(event.KindExtractionBonus))
}

func TestManager_ExtractionFailedCountsKinds(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		mustAdd(t, f.mgr, data.UpgradeSpeedBoost)
	}
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)
	require.Equal(t, 5, f.mgr.TotalCollected())

	lost := f.mgr.OnExtractionFailed()
	assert.Equal(t, 2, lost)
	assert.Equal(t, int64(0), f.xp.total)
	assert.Equal(t, 0, f.mgr.TotalCollected())
	assert.Equal(t, 0, f.mgr.ActiveCount())
	assert.True(t, f.mgr.Buffs().IsNeutral())

	ev, found := event.Last[event.UpgradesLost](f.rec)
	require.True(t, found)
	assert.Equal(t, 2, ev.Count)
	assert.Equal(t, "death", ev.Reason)
	assert.Empty(t, f.state.ActiveModifiers())
}

func TestManager_HealthRegenTicksPerSecond(t *testing.T) {
	f := newFixture(t)
	healer := &fakeHealer{health: 50, maxHealth: 100}
	f.mgr.SetHealer(healer)

	mustAdd(t, f.mgr, data.UpgradeHealthRegen)
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)
	require.Equal(t, 2.0, f.mgr.GetBuff(buff.HealthRegenPerSecond))

	for range 5 {
		f.mgr.Update(500)
	}
	assert.Equal(t, []int{2, 2}, healer.heals)
	assert.Equal(t, 54, healer.health)
}

func TestManager_HealthRegenSingleLargeDelta(t *testing.T) {
	f := newFixture(t)
	healer := &fakeHealer{health: 10, maxHealth: 100}
	f.mgr.SetHealer(healer)
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)

	f.mgr.Update(2500)
	assert.Equal(t, []int{1, 1}, healer.heals)

	f.mgr.Update(500)
	assert.Equal(t, []int{1, 1, 1}, healer.heals)
}

func TestManager_HealthRegenSkipsFullHealth(t *testing.T) {
	f := newFixture(t)
	healer := &fakeHealer{health: 100, maxHealth: 100}
	f.mgr.SetHealer(healer)
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)

	f.mgr.Update(3000)
	assert.Empty(t, healer.heals)
}

func TestManager_NoRegenWithoutBuff(t *testing.T) {
	f := newFixture(t)
	healer := &fakeHealer{health: 10, maxHealth: 100}
	f.mgr.SetHealer(healer)

	f.mgr.Update(5000)
	mustAdd(t, f.mgr, data.UpgradeHealthRegen)
	f.mgr.Update(999)
	assert.Empty(t, healer.heals)
	f.mgr.Update(1)
	assert.Equal(t, []int{1}, healer.heals)
}

func TestManager_SnapshotEmission(t *testing.T) {
	f := newFixture(t)

	f.mgr.Update(16)
	assert.Equal(t, 0, f.state.ModifierWrites(), "no write while nothing is held")

	mustAdd(t, f.mgr, data.UpgradeExtraDash)
	f.mgr.Update(16)
	require.Equal(t, 1, f.state.ModifierWrites())
	mods := f.state.ActiveModifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, data.UpgradeExtraDash, mods[0].ID)
	assert.Equal(t, "Blink", mods[0].Name)
	assert.True(t, mods[0].Timed)
	assert.Equal(t, int64(45000-16), mods[0].RemainingMs)

	f.mgr.Update(45000)
	assert.Equal(t, 2, f.state.ModifierWrites(), "one empty write after the last expiry")
	assert.Empty(t, f.state.ActiveModifiers())

	f.mgr.Update(16)
	f.mgr.Update(16)
	assert.Equal(t, 2, f.state.ModifierWrites())
}

func TestManager_SnapshotPermanentRow(t *testing.T) {
	f := newFixture(t)
	mustAdd(t, f.mgr, data.UpgradeStaminaEfficiency)
	mustAdd(t, f.mgr, data.UpgradeDamageBoost)

	f.mgr.Update(10)
	mods := f.state.ActiveModifiers()
	require.Len(t, mods, 2)
	assert.Equal(t, data.UpgradeStaminaEfficiency, mods[0].ID, "pickup order")
	assert.False(t, mods[0].Timed)
	assert.Equal(t, int64(0), mods[0].RemainingMs)
}

func TestManager_BuffsChangedPayload(t *testing.T) {
	f := newFixture(t)
	mustAdd(t, f.mgr, data.UpgradeSpeedBoost)

	ev, found := event.Last[event.BuffsChanged](f.rec)
	require.True(t, found)
	assert.Equal(t, "run", ev.Source)
	assert.InDelta(t, 1.2, ev.Buffs[buff.SpeedMultiplier], 1e-9)
	assert.Len(t, ev.Buffs, len(buff.RunKeys))
}

func TestManager_SubscriberMayCallBack(t *testing.T) {
	f := newFixture(t)
	var seen float64
	event.On(f.bus, func(e event.UpgradeGained) {
		seen = f.mgr.GetBuff(buff.DamageMultiplier)
	})

	mustAdd(t, f.mgr, data.UpgradeDamageBoost)
	assert.InDelta(t, 1.25, seen, 1e-9)
}

// closedForm applies the aggregation rule to the current stack counts.
func closedForm(m *Manager) map[buff.Key]float64 {
	want := map[buff.Key]float64{}
	for _, k := range buff.RunKeys {
		want[k] = buff.Neutral(k)
	}
	for _, kind := range data.Upgrades() {
		stacks := m.Stacks(kind.ID)
		if stacks == 0 {
			continue
		}
		for k, v := range kind.Effect {
			if k.Type() == buff.ModMul {
				want[k] *= math.Pow(v, float64(stacks))
			} else {
				want[k] += v * float64(stacks)
			}
		}
	}
	return want
}

func TestManager_RandomSequencesMatchClosedForm(t *testing.T) {
	ids := data.UpgradeIDs()

	for seed := range uint64(25) {
		f := newFixture(t)
		rng := rand.New(rand.NewPCG(seed, seed*7+1))
		successes := 0

		for range 60 {
			switch rng.IntN(4) {
			case 0:
				f.mgr.Update(int64(rng.IntN(5000)))
			default:
				ok, err := f.mgr.AddUpgrade(ids[rng.IntN(len(ids))])
				require.NoError(t, err)
				if ok {
					successes++
				}
			}

			for _, kind := range data.Upgrades() {
				assert.LessOrEqual(t, f.mgr.Stacks(kind.ID), kind.Cap())
			}
			want := closedForm(f.mgr)
			got := f.mgr.Buffs()
			for k, v := range want {
				assert.InDelta(t, v, got.Get(k), 1e-9, "seed %d key %s", seed, k)
			}
			assert.True(t, got.Equal(f.mgr.Buffs()))
		}

		assert.Equal(t, successes, f.mgr.TotalCollected())
		if seed%2 == 0 {
			f.mgr.OnExtractionFailed()
		} else {
			assert.Equal(t, int64(successes)*5, f.mgr.OnExtractionSuccess())
		}
		assert.Equal(t, 0, f.mgr.TotalCollected())
		assert.True(t, f.mgr.Buffs().IsNeutral())
	}
}

func TestManager_NilCollaborators(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil, nil)

	mustAdd(t, m, data.UpgradeHealthRegen)
	m.Update(3000)
	assert.Equal(t, int64(5), m.OnExtractionSuccess())
	assert.Equal(t, 0, m.OnExtractionFailed())
}
