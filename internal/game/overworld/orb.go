package overworld

import (
	"log/slog"
	"math/rand/v2"

	"github.com/udisondev/highsociety/internal/data"
	"github.com/udisondev/highsociety/internal/model"
)

// OrbConfig tunes upgrade orb pickups.
type OrbConfig struct {
	LifetimeMs    int64
	Radius        float64
	PickupDelayMs int64
}

// DefaultOrbConfig returns the stock orb tuning.
func DefaultOrbConfig() OrbConfig {
	return OrbConfig{LifetimeMs: 30000, Radius: 24, PickupDelayMs: 200}
}

// Orb is an upgrade lying on the ground.
type Orb struct {
	ID     int
	KindID string
	Pos    model.Position
	AgeMs  int64
}

// Pickup reports one orb touched by the player.
type Pickup struct {
	Orb     Orb
	Granted bool // false when the kind was already maxed
}

// GrantFunc applies an upgrade; upgrade.Manager.AddUpgrade satisfies it.
type GrantFunc func(id string) (bool, error)

// Orbs tracks the orbs on the current map. Not thread-safe: owned by the
// controller and driven from its Update.
type Orbs struct {
	cfg    OrbConfig
	rng    *rand.Rand
	orbs   []*Orb
	nextID int
}

// NewOrbs creates an empty orb field.
func NewOrbs(cfg OrbConfig, rng *rand.Rand) *Orbs {
	return &Orbs{cfg: cfg, rng: rng}
}

// Spawn drops an orb at pos. An empty kindID picks a random kind.
func (o *Orbs) Spawn(pos model.Position, kindID string) Orb {
	if kindID == "" {
		ids := data.UpgradeIDs()
		kindID = ids[o.rng.IntN(len(ids))]
	}
	o.nextID++
	orb := &Orb{ID: o.nextID, KindID: kindID, Pos: pos}
	o.orbs = append(o.orbs, orb)
	return *orb
}

// MaybeDrop rolls the drop chance for enemyType and spawns a random orb on success.
func (o *Orbs) MaybeDrop(enemyType string, pos model.Position) (Orb, bool) {
	rate := data.OrbDropRate(enemyType)
	if rate <= 0 || o.rng.Float64() >= rate {
		return Orb{}, false
	}
	return o.Spawn(pos, ""), true
}

// Len returns the number of orbs on the ground.
func (o *Orbs) Len() int {
	return len(o.orbs)
}

// List returns copies of the orbs on the ground.
func (o *Orbs) List() []Orb {
	out := make([]Orb, len(o.orbs))
	for i, orb := range o.orbs {
		out[i] = *orb
	}
	return out
}

// Update ages the orbs, despawns the stale ones and removes those within
// reach of player. The removed orbs are returned for the caller to grant:
// an orb is consumed on any pickup attempt, granted or not.
func (o *Orbs) Update(deltaMs int64, player model.Positioned) []Orb {
	var touched []Orb
	kept := o.orbs[:0]
	for _, orb := range o.orbs {
		orb.AgeMs += deltaMs
		if orb.AgeMs >= o.cfg.LifetimeMs {
			slog.Debug("orb despawned", "orb", orb.ID, "kind", orb.KindID)
			continue
		}
		if player != nil && orb.AgeMs >= o.cfg.PickupDelayMs &&
			orb.Pos.Within(player.Position(), o.cfg.Radius) {
			touched = append(touched, *orb)
			continue
		}
		kept = append(kept, orb)
	}
	clear(o.orbs[len(kept):])
	o.orbs = kept
	return touched
}

// Collect grants each touched orb through grant.
func Collect(touched []Orb, grant GrantFunc) []Pickup {
	picked := make([]Pickup, 0, len(touched))
	for _, orb := range touched {
		ok, err := grant(orb.KindID)
		if err != nil {
			slog.Warn("orb pickup failed", "orb", orb.ID, "kind", orb.KindID, "error", err)
		}
		picked = append(picked, Pickup{Orb: orb, Granted: ok})
	}
	return picked
}
