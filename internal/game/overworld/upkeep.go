package overworld

import (
	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/gamestate"
)

const upkeepWarnAt = 10

// AdvanceHour applies one in-game hour of upkeep to u.
// Sleep recovers at night (22:00-05:59) and drains otherwise.
func AdvanceHour(u gamestate.Upkeep) gamestate.Upkeep {
	u.Hour = (u.Hour + 1) % 24
	if u.Hour == 0 {
		u.Day++
	}
	u.Hunger = max(u.Hunger-1, 0)
	u.Thirst = max(u.Thirst-1, 0)
	if u.Hour >= 22 || u.Hour < 6 {
		u.Sleep = min(u.Sleep+4, 100)
	} else {
		u.Sleep = max(u.Sleep-1, 0)
	}
	return u
}

// UpkeepClock advances the world clock while the player is in the overworld.
type UpkeepClock struct {
	hourMs  int64
	timerMs int64
	store   *gamestate.GameState
	bus     *event.Bus
}

// NewUpkeepClock creates a clock that advances one hour every hourMs.
func NewUpkeepClock(hourMs int64, store *gamestate.GameState, bus *event.Bus) *UpkeepClock {
	if hourMs <= 0 {
		hourMs = 5000
	}
	return &UpkeepClock{hourMs: hourMs, store: store, bus: bus}
}

// Update advances the timer and returns the number of hours that passed.
func (c *UpkeepClock) Update(deltaMs int64) int {
	if c.store == nil || deltaMs <= 0 {
		return 0
	}
	c.timerMs += deltaMs

	hours := 0
	for c.timerMs >= c.hourMs {
		c.timerMs -= c.hourMs
		u := AdvanceHour(c.store.Upkeep())
		c.store.SetUpkeep(u)
		hours++

		if u.Hunger <= upkeepWarnAt || u.Thirst <= upkeepWarnAt {
			c.bus.Publish(event.UpkeepWarning{Hunger: u.Hunger, Thirst: u.Thirst, Sleep: u.Sleep})
		}
	}
	return hours
}
