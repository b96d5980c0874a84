// Package overworld runs one visit to the wilderness: boundary crossings,
// the death check, fleeing, upkeep and upgrade orbs.
package overworld

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/udisondev/highsociety/internal/event"
	"github.com/udisondev/highsociety/internal/model"
)

// State of a Controller.
type State uint8

const (
	StateEntered State = iota
	StateInProgress
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateEntered:
		return "entered"
	case StateInProgress:
		return "in_progress"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome is what ended a visit.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeExtracted
	OutcomeContinued
	OutcomeDied
	OutcomeFled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeContinued:
		return "continued"
	case OutcomeDied:
		return "died"
	case OutcomeFled:
		return "fled"
	default:
		return "none"
	}
}

// Config tunes the overworld.
type Config struct {
	WorldWidth     float64
	WorldHeight    float64
	ZonePad        float64
	ZoneCooldownMs int64
	ArrivalInset   float64
	ArrivalJitter  float64
	HourLengthMs   int64
	Orbs           OrbConfig
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		WorldWidth:     1600,
		WorldHeight:    1200,
		ZonePad:        24,
		ZoneCooldownMs: 800,
		ArrivalInset:   96,
		ArrivalJitter:  24,
		HourLengthMs:   5000,
		Orbs:           DefaultOrbConfig(),
	}
}

// Visit identifies one overworld map: the direction the player travelled
// to reach it and how many continuations deep it is.
type Visit struct {
	Entry     Direction
	Depth     int
	RunTimeMs int64 // carried over from earlier maps of the same run
}

// Transition is the instruction the host acts on once a visit resolves.
type Transition struct {
	Outcome   Outcome
	Exit      Direction
	Depth     int
	RunTimeMs int64
}

// Next returns the visit to start for a continuation.
func (t Transition) Next() (Visit, bool) {
	if t.Outcome != OutcomeContinued {
		return Visit{}, false
	}
	return Visit{Entry: t.Exit, Depth: t.Depth, RunTimeMs: t.RunTimeMs}, true
}

// ReturnsToTown reports whether the host should go back to the town.
func (t Transition) ReturnsToTown() bool {
	return t.Outcome == OutcomeExtracted || t.Outcome == OutcomeDied || t.Outcome == OutcomeFled
}

// Upgrades is the run-state manager as seen by the overworld.
type Upgrades interface {
	Update(deltaMs int64)
	AddUpgrade(id string) (bool, error)
}

// Body is the player as seen by the overworld.
type Body interface {
	model.Positioned
	SetPosition(pos model.Position)
	Health() int
}

// Controller drives one overworld visit. A continuation builds a new
// Controller; the upgrade run state outlives it.
//
// Thread-safe.
type Controller struct {
	mu sync.Mutex

	cfg    Config
	bus    *event.Bus
	ups    Upgrades
	player Body
	upkeep *UpkeepClock
	orbs   *Orbs

	visit     Visit
	zones     []Zone
	state     State
	nowMs     int64
	runTimeMs int64
	unlocksAt map[Direction]int64
	result    Transition
}

// NewController starts a visit and places player at the arrival point.
// upkeep may be nil.
func NewController(cfg Config, visit Visit, bus *event.Bus, ups Upgrades, player Body, upkeep *UpkeepClock, rng *rand.Rand) *Controller {
	c := &Controller{
		cfg:       cfg,
		bus:       bus,
		ups:       ups,
		player:    player,
		upkeep:    upkeep,
		orbs:      NewOrbs(cfg.Orbs, rng),
		visit:     visit,
		zones:     BoundaryZones(cfg.WorldWidth, cfg.WorldHeight, cfg.ZonePad),
		state:     StateEntered,
		runTimeMs: visit.RunTimeMs,
		unlocksAt: make(map[Direction]int64, 4),
	}

	pos := ArrivalPosition(visit.Entry, cfg.WorldWidth, cfg.WorldHeight, cfg.ArrivalInset)
	if visit.Entry != DirNone && cfg.ArrivalJitter > 0 {
		pos.X += (rng.Float64()*2 - 1) * cfg.ArrivalJitter
		pos.Y += (rng.Float64()*2 - 1) * cfg.ArrivalJitter
	}
	player.SetPosition(pos)

	slog.Info("overworld entered", "entry", visit.Entry, "depth", visit.Depth, "x", pos.X, "y", pos.Y)
	return c
}

// Listen subscribes the orb field to kill events. The returned func unsubscribes.
func (c *Controller) Listen() func() {
	return event.On(c.bus, func(e event.EnemyKilled) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == StateResolved {
			return
		}
		if orb, ok := c.orbs.MaybeDrop(e.EnemyType, model.NewPosition(e.X, e.Y)); ok {
			slog.Debug("orb dropped", "orb", orb.ID, "kind", orb.KindID, "enemy", e.EnemyType)
		}
	})
}

// Update advances the visit by one frame. It returns the transition on the
// frame the visit resolves; a resolved controller is inert.
//
// Frame order: upgrade timers, upkeep, orb pickups, death check, boundary strips.
func (c *Controller) Update(deltaMs int64) (Transition, bool) {
	deltaMs = max(deltaMs, 0)

	c.mu.Lock()
	if c.state == StateResolved {
		c.mu.Unlock()
		return Transition{}, false
	}
	c.state = StateInProgress
	c.nowMs += deltaMs
	c.runTimeMs += deltaMs
	touched := c.orbs.Update(deltaMs, c.player)
	c.mu.Unlock()

	if c.ups != nil {
		c.ups.Update(deltaMs)
		for _, p := range Collect(touched, c.ups.AddUpgrade) {
			slog.Debug("orb collected", "orb", p.Orb.ID, "kind", p.Orb.KindID, "granted", p.Granted)
		}
	}
	if c.upkeep != nil {
		c.upkeep.Update(deltaMs)
	}

	if c.player.Health() <= 0 {
		return c.resolve(OutcomeDied, DirNone)
	}

	pos := c.player.Position()
	for _, z := range c.zones {
		if !z.Contains(pos) {
			continue
		}
		if t, ok := c.Cross(z.Dir); ok {
			return t, true
		}
	}
	return Transition{}, false
}

// Cross handles the player entering the strip for dir. A strip fires at
// most once per cooldown window.
func (c *Controller) Cross(dir Direction) (Transition, bool) {
	c.mu.Lock()
	if c.state == StateResolved || c.nowMs < c.unlocksAt[dir] {
		c.mu.Unlock()
		return Transition{}, false
	}
	c.unlocksAt[dir] = c.nowMs + c.cfg.ZoneCooldownMs
	extraction := c.visit.Entry != DirNone && dir == c.visit.Entry.Opposite()
	c.mu.Unlock()

	if extraction {
		return c.resolve(OutcomeExtracted, dir)
	}
	return c.resolve(OutcomeContinued, dir)
}

// Flee aborts the visit back to town. Upgrades are kept and no XP is paid.
func (c *Controller) Flee() (Transition, bool) {
	return c.resolve(OutcomeFled, DirNone)
}

// ZoneReady reports whether the strip for dir is off cooldown.
func (c *Controller) ZoneReady(dir Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowMs >= c.unlocksAt[dir]
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Visit returns the visit this controller was created for.
func (c *Controller) Visit() Visit {
	return c.visit
}

// RunTimeMs returns the time spent in the overworld during this run.
func (c *Controller) RunTimeMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runTimeMs
}

// Result returns the transition once resolved.
func (c *Controller) Result() (Transition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.state == StateResolved
}

// SpawnOrb drops an orb at pos; an empty kindID picks a random kind.
func (c *Controller) SpawnOrb(pos model.Position, kindID string) Orb {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orbs.Spawn(pos, kindID)
}

// Orbs returns the orbs on the ground.
func (c *Controller) Orbs() []Orb {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orbs.List()
}

// Zones returns the boundary strips.
func (c *Controller) Zones() []Zone {
	return c.zones
}

// resolve marks the visit terminal and publishes the matching run event.
// Only the first call wins.
func (c *Controller) resolve(outcome Outcome, exit Direction) (Transition, bool) {
	c.mu.Lock()
	if c.state == StateResolved {
		c.mu.Unlock()
		return Transition{}, false
	}
	c.state = StateResolved
	t := Transition{Outcome: outcome, Exit: exit, Depth: c.visit.Depth, RunTimeMs: c.runTimeMs}
	if outcome == OutcomeContinued {
		t.Depth = c.visit.Depth + 1
	}
	c.result = t
	c.mu.Unlock()

	slog.Info("overworld resolved",
		"outcome", outcome,
		"exit", exit,
		"depth", t.Depth,
		"runTimeMs", t.RunTimeMs)

	switch outcome {
	case OutcomeExtracted:
		c.bus.Publish(event.ExtractionSucceeded{Direction: exit.String(), Depth: c.visit.Depth, RunTimeMs: t.RunTimeMs})
	case OutcomeDied:
		c.bus.Publish(event.PlayerDied{Depth: c.visit.Depth, RunTimeMs: t.RunTimeMs})
	case OutcomeFled:
		c.bus.Publish(event.RunFled{Depth: c.visit.Depth, RunTimeMs: t.RunTimeMs})
	}
	return t, true
}
