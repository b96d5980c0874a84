package overworld

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/game/upgrade"
	"github.com/udisondev/highsociety/internal/gamestate"
	"github.com/udisondev/highsociety/internal/model"
)

type visitFixture struct {
	ctrl   *Controller
	bus    *event.Bus
	rec    *event.Recorder
	ups    *upgrade.Manager
	player *model.Player
	state  *gamestate.GameState
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ArrivalJitter = 0
	return cfg
}

func newVisit(t *testing.T, visit Visit) *visitFixture {
	t.Helper()
	bus := event.NewBus()
	rec := event.NewRecorder(bus)
	t.Cleanup(rec.Close)

	state := gamestate.New(gamestate.DefaultSaveState("test"))
	ups := upgrade.NewManager(upgrade.DefaultConfig(), bus, state, nil)
	player := model.NewPlayer("tester", model.Position{})
	cfg := testConfig()
	clock := NewUpkeepClock(cfg.HourLengthMs, state, bus)
	ctrl := NewController(cfg, visit, bus, ups, player, clock, rand.New(rand.NewPCG(1, 2)))

	return &visitFixture{ctrl: ctrl, bus: bus, rec: rec, ups: ups, player: player, state: state}
}

func TestController_ArrivalPlacement(t *testing.T) {
	tests := []struct {
		entry Direction
		want  model.Position
	}{
		{North, model.NewPosition(800, 1200-96)},
		{South, model.NewPosition(800, 96)},
		{West, model.NewPosition(1600-96, 600)},
		{East, model.NewPosition(96, 600)},
		{DirNone, model.NewPosition(800, 600)},
	}
	for _, tt := range tests {
		t.Run(tt.entry.String(), func(t *testing.T) {
			f := newVisit(t, Visit{Entry: tt.entry})
			assert.Equal(t, tt.want, f.player.Position())
			assert.Equal(t, StateEntered, f.ctrl.State())

			_, resolved := f.ctrl.Update(16)
			assert.False(t, resolved, "arrival point must not sit in a strip")
			assert.Equal(t, StateInProgress, f.ctrl.State())
		})
	}
}

func TestController_ArrivalJitterStaysInRange(t *testing.T) {
	cfg := DefaultConfig()
	player := model.NewPlayer("tester", model.Position{})
	rng := rand.New(rand.NewPCG(7, 7))

	for range 50 {
		NewController(cfg, Visit{Entry: East}, nil, nil, player, nil, rng)
		pos := player.Position()
		assert.InDelta(t, 96, pos.X, 24)
		assert.InDelta(t, 600, pos.Y, 24)
	}
}

func TestController_OppositeEdgeExtracts(t *testing.T) {
	f := newVisit(t, Visit{Entry: North, Depth: 2, RunTimeMs: 1000})
	require.NoError(t, addAll(f.ups, data.UpgradeDamageBoost))

	f.ctrl.Update(500)
	f.player.SetPosition(model.NewPosition(800, 1190))
	tr, ok := f.ctrl.Update(16)

	require.True(t, ok)
	assert.Equal(t, OutcomeExtracted, tr.Outcome)
	assert.Equal(t, South, tr.Exit)
	assert.Equal(t, 2, tr.Depth)
	assert.Equal(t, int64(1516), tr.RunTimeMs)
	assert.True(t, tr.ReturnsToTown())
	_, cont := tr.Next()
	assert.False(t, cont)

	ev, found := event.Last[event.ExtractionSucceeded](f.rec)
	require.True(t, found)
	assert.Equal(t, "south", ev.Direction)
	assert.Equal(t, 2, ev.Depth)
	assert.Equal(t, StateResolved, f.ctrl.State())
}

func TestController_OtherEdgeContinues(t *testing.T) {
	for _, exit := range []Direction{North, East, West} {
		t.Run(exit.String(), func(t *testing.T) {
			f := newVisit(t, Visit{Entry: North, Depth: 0})
			f.ctrl.Update(16)

			tr, ok := f.ctrl.Cross(exit)
			require.True(t, ok)
			assert.Equal(t, OutcomeContinued, tr.Outcome)
			assert.Equal(t, 1, tr.Depth)
			assert.False(t, tr.ReturnsToTown())

			next, cont := tr.Next()
			require.True(t, cont)
			assert.Equal(t, exit, next.Entry)
			assert.Equal(t, 1, next.Depth)
			assert.Equal(t, int64(16), next.RunTimeMs)
			assert.Equal(t, 0, f.rec.Count(event.KindExtractionSucceeded))
		})
	}
}

func TestController_NoEntryDirectionNeverExtracts(t *testing.T) {
	for _, exit := range []Direction{North, South, East, West} {
		f := newVisit(t, Visit{})
		tr, ok := f.ctrl.Cross(exit)
		require.True(t, ok)
		assert.Equal(t, OutcomeContinued, tr.Outcome)
	}
}

func TestController_ContinuationKeepsUpgrades(t *testing.T) {
	f := newVisit(t, Visit{Entry: East})
	require.NoError(t, addAll(f.ups, data.UpgradeSpeedBoost, data.UpgradeSpeedBoost))

	f.player.SetPosition(model.NewPosition(800, 5))
	tr, ok := f.ctrl.Update(16)
	require.True(t, ok)
	require.Equal(t, OutcomeContinued, tr.Outcome)

	next, _ := tr.Next()
	second := NewController(testConfig(), next, f.bus, f.ups, f.player, nil, rand.New(rand.NewPCG(3, 4)))
	assert.Equal(t, 2, f.ups.Stacks(data.UpgradeSpeedBoost))
	assert.Equal(t, model.NewPosition(800, 1200-96), f.player.Position())

	// entered going north, so south is home
	second.player.SetPosition(model.NewPosition(800, 1195))
	tr, ok = second.Update(16)
	require.True(t, ok)
	assert.Equal(t, OutcomeExtracted, tr.Outcome)
	assert.Equal(t, 1, tr.Depth)
	assert.Equal(t, int64(32), tr.RunTimeMs)
}

func TestController_DeathBypassesZones(t *testing.T) {
	f := newVisit(t, Visit{Entry: North, Depth: 3})
	f.player.SetPosition(model.NewPosition(800, 1190))
	f.player.TakeDamage(1000)

	tr, ok := f.ctrl.Update(16)
	require.True(t, ok)
	assert.Equal(t, OutcomeDied, tr.Outcome)
	assert.True(t, tr.ReturnsToTown())

	died, found := event.Last[event.PlayerDied](f.rec)
	require.True(t, found)
	assert.Equal(t, 3, died.Depth)
	assert.Equal(t, 0, f.rec.Count(event.KindExtractionSucceeded))
}

func TestController_Flee(t *testing.T) {
	f := newVisit(t, Visit{Entry: West, Depth: 1})
	require.NoError(t, addAll(f.ups, data.UpgradeHealthRegen))

	tr, ok := f.ctrl.Flee()
	require.True(t, ok)
	assert.Equal(t, OutcomeFled, tr.Outcome)
	assert.Equal(t, 1, f.rec.Count(event.KindRunFled))
	assert.True(t, f.ups.HasUpgrade(data.UpgradeHealthRegen))

	_, again := f.ctrl.Flee()
	assert.False(t, again)
	assert.Equal(t, 1, f.rec.Count(event.KindRunFled))
}

func TestController_ResolvedIsInert(t *testing.T) {
	f := newVisit(t, Visit{Entry: North})
	_, ok := f.ctrl.Cross(South)
	require.True(t, ok)

	f.player.TakeDamage(1000)
	_, ok = f.ctrl.Update(16)
	assert.False(t, ok)
	_, ok = f.ctrl.Cross(East)
	assert.False(t, ok)

	assert.Equal(t, 1, f.rec.Count(event.KindExtractionSucceeded))
	assert.Equal(t, 0, f.rec.Count(event.KindPlayerDied))

	res, done := f.ctrl.Result()
	require.True(t, done)
	assert.Equal(t, OutcomeExtracted, res.Outcome)
}

func TestController_ZoneCooldown(t *testing.T) {
	f := newVisit(t, Visit{Entry: North})
	f.ctrl.Update(100)
	assert.True(t, f.ctrl.ZoneReady(East))

	_, ok := f.ctrl.Cross(East)
	require.True(t, ok)
	assert.False(t, f.ctrl.ZoneReady(East))
	assert.True(t, f.ctrl.ZoneReady(West), "cooldowns are per strip")

	_, ok = f.ctrl.Cross(East)
	assert.False(t, ok)
}

func TestController_OrbPickup(t *testing.T) {
	f := newVisit(t, Visit{Entry: North})
	pos := f.player.Position()
	f.ctrl.SpawnOrb(pos, data.UpgradeDamageBoost)

	f.ctrl.Update(100)
	assert.Len(t, f.ctrl.Orbs(), 1, "pickup delay not elapsed")
	assert.False(t, f.ups.HasUpgrade(data.UpgradeDamageBoost))

	f.ctrl.Update(100)
	assert.Empty(t, f.ctrl.Orbs())
	assert.Equal(t, 1, f.ups.Stacks(data.UpgradeDamageBoost))
}

func TestController_MaxedOrbIsConsumed(t *testing.T) {
	f := newVisit(t, Visit{Entry: North})
	require.NoError(t, addAll(f.ups, data.UpgradeDamageBoost, data.UpgradeDamageBoost, data.UpgradeDamageBoost))

	f.ctrl.SpawnOrb(f.player.Position(), data.UpgradeDamageBoost)
	f.ctrl.Update(250)

	assert.Empty(t, f.ctrl.Orbs())
	assert.Equal(t, 3, f.ups.Stacks(data.UpgradeDamageBoost))
	assert.Equal(t, 1, f.rec.Count(event.KindUpgradeMaxed))
}

func TestController_EnemyKillDrops(t *testing.T) {
	f := newVisit(t, Visit{Entry: North})
	stop := f.ctrl.Listen()
	defer stop()

	for range 200 {
		f.bus.Publish(event.EnemyKilled{EnemyType: data.EnemyGuard, X: 10, Y: 10})
	}
	assert.Empty(t, f.ctrl.Orbs(), "guards never drop")

	for range 200 {
		f.bus.Publish(event.EnemyKilled{EnemyType: data.EnemyRanger, X: 10, Y: 10})
	}
	n := len(f.ctrl.Orbs())
	assert.Greater(t, n, 30)
	assert.Less(t, n, 100)
	for _, orb := range f.ctrl.Orbs() {
		_, err := data.UpgradeByID(orb.KindID)
		assert.NoError(t, err)
	}
}

func TestController_UpkeepAdvances(t *testing.T) {
	f := newVisit(t, Visit{Entry: North})

	for range 10 {
		f.ctrl.Update(1000)
	}
	u := f.state.Upkeep()
	assert.Equal(t, 14, u.Hour)
	assert.Equal(t, 98, u.Hunger)
}

func addAll(m *upgrade.Manager, ids ...string) error {
	for _, id := range ids {
		if _, err := m.AddUpgrade(id); err != nil {
			return err
		}
	}
	return nil
}
