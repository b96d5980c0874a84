package data

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/udisondev/highsociety/internal/game/buff"
)

// ErrUnknownUpgrade is returned when an upgrade id is not in the catalog.
var ErrUnknownUpgrade = errors.New("unknown upgrade kind")

// Upgrade kind ids.
const (
	UpgradeDamageBoost       = "damage_boost"
	UpgradeSpeedBoost        = "speed_boost"
	UpgradeHealthRegen       = "health_regen"
	UpgradeExtraDash         = "extra_dash"
	UpgradeStaminaEfficiency = "stamina_efficiency"
)

// UpgradeKind is an immutable catalog entry for a temporary run upgrade.
type UpgradeKind struct {
	ID          string
	Name        string
	Description string
	Color       uint32
	Effect      map[buff.Key]float64 // per-stack value
	DurationMs  int64                // 0 = lasts until the run ends
	Stackable   bool
	MaxStacks   int
}

// Timed reports whether the upgrade expires on its own.
func (k *UpgradeKind) Timed() bool {
	return k.DurationMs > 0
}

// Cap returns the effective stack limit (1 for non-stackable kinds).
func (k *UpgradeKind) Cap() int {
	if !k.Stackable || k.MaxStacks < 1 {
		return 1
	}
	return k.MaxStacks
}

// Modifiers expands the effect map for the given stack count, sorted by key.
func (k *UpgradeKind) Modifiers(stacks int) []buff.Modifier {
	mods := make([]buff.Modifier, 0, len(k.Effect))
	for key, v := range k.Effect {
		mods = append(mods, buff.Modifier{Key: key, Value: v, Stacks: stacks})
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Key < mods[j].Key })
	return mods
}

// upgradeTable is the closed set of upgrade kinds, in drop-table order.
var upgradeTable = []*UpgradeKind{
	{
		ID:          UpgradeDamageBoost,
		Name:        "Fury",
		Description: "+25% damage",
		Color:       0xff4444,
		Effect:      map[buff.Key]float64{buff.DamageMultiplier: 1.25},
		Stackable:   true,
		MaxStacks:   3,
	},
	{
		ID:          UpgradeSpeedBoost,
		Name:        "Swiftness",
		Description: "+20% movement speed",
		Color:       0x44ff44,
		Effect:      map[buff.Key]float64{buff.SpeedMultiplier: 1.20},
		Stackable:   true,
		MaxStacks:   3,
	},
	{
		ID:          UpgradeHealthRegen,
		Name:        "Vitality",
		Description: "Regenerate 1 HP/sec",
		Color:       0xff88ff,
		Effect:      map[buff.Key]float64{buff.HealthRegenPerSecond: 1},
		Stackable:   true,
		MaxStacks:   5,
	},
	{
		ID:          UpgradeExtraDash,
		Name:        "Blink",
		Description: "+1 dash charge (45s)",
		Color:       0x44ffff,
		Effect:      map[buff.Key]float64{buff.ExtraDashCharges: 1},
		DurationMs:  45000,
		Stackable:   true,
		MaxStacks:   2,
	},
	{
		ID:          UpgradeStaminaEfficiency,
		Name:        "Endurance",
		Description: "-20% stamina cost",
		Color:       0x88ff88,
		Effect:      map[buff.Key]float64{buff.StaminaCostMultiplier: 0.80},
		Stackable:   true,
		MaxStacks:   3,
	},
}

var upgradeIndex = func() map[string]*UpgradeKind {
	m := make(map[string]*UpgradeKind, len(upgradeTable))
	for _, k := range upgradeTable {
		m[k.ID] = k
	}
	return m
}()

// UpgradeByID looks up an upgrade kind. Ids are matched case-insensitively, so
// catalog keys like "DAMAGE_BOOST" resolve too. Unknown ids wrap ErrUnknownUpgrade
// and carry the closest known id when there is one.
func UpgradeByID(id string) (*UpgradeKind, error) {
	norm := strings.ToLower(strings.TrimSpace(id))
	if k, ok := upgradeIndex[norm]; ok {
		return k, nil
	}
	if s, ok := Suggest(norm, UpgradeIDs()); ok {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownUpgrade, id, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownUpgrade, id)
}

// UpgradeIDs returns every upgrade id in catalog order.
func UpgradeIDs() []string {
	ids := make([]string, len(upgradeTable))
	for i, k := range upgradeTable {
		ids[i] = k.ID
	}
	return ids
}

// Upgrades returns every upgrade kind in catalog order.
func Upgrades() []*UpgradeKind {
	out := make([]*UpgradeKind, len(upgradeTable))
	copy(out, upgradeTable)
	return out
}
