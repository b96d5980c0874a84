// Package buff resolves stacked stat effects into a single read-only table.
//
// Temporary run upgrades and permanent abilities are aggregated into separate
// tables; consumers combine them at the point of use with Combine.
package buff

import (
	"math"
	"sort"
	"strings"
)

// Key names a resolved stat effect.
type Key string

// Temporary run upgrade keys.
const (
	DamageMultiplier      Key = "damageMultiplier"
	SpeedMultiplier       Key = "speedMultiplier"
	HealthRegenPerSecond  Key = "healthRegenPerSecond"
	ExtraDashCharges      Key = "extraDashCharges"
	StaminaCostMultiplier Key = "staminaCostMultiplier"
)

// Permanent ability keys.
const (
	MaxHealthBonus         Key = "maxHealthBonus"
	SellPriceMultiplier    Key = "sellPriceMultiplier"
	HealthRegen            Key = "healthRegen"
	AOEMultiplier          Key = "aoeMultiplier"
	LifestealPercent       Key = "lifestealPercent"
	DashDistanceMultiplier Key = "dashDistanceMultiplier"
)

// RunKeys lists every key a temporary upgrade can touch.
var RunKeys = []Key{
	DamageMultiplier,
	SpeedMultiplier,
	HealthRegenPerSecond,
	ExtraDashCharges,
	StaminaCostMultiplier,
}

// AbilityKeys lists every key a permanent ability can touch.
var AbilityKeys = []Key{
	DamageMultiplier,
	SpeedMultiplier,
	MaxHealthBonus,
	SellPriceMultiplier,
	ExtraDashCharges,
	HealthRegen,
	AOEMultiplier,
	LifestealPercent,
	DashDistanceMultiplier,
}

// ModType defines how a modifier is folded into the table.
type ModType int8

const (
	ModAdd ModType = iota // value * stacks, summed
	ModMul                // value ^ stacks, multiplied
)

// Type returns the aggregation rule implied by the key name:
// "...Multiplier" keys multiply, everything else adds.
func (k Key) Type() ModType {
	if strings.Contains(string(k), "Multiplier") {
		return ModMul
	}
	return ModAdd
}

// Neutral returns the identity value for k (1 for multipliers, 0 otherwise).
func Neutral(k Key) float64 {
	if k.Type() == ModMul {
		return 1.0
	}
	return 0
}

// Modifier is one source contributing to a key.
type Modifier struct {
	Key    Key
	Value  float64 // per-stack value
	Stacks int     // treated as 1 when < 1
}

// Table is an immutable snapshot of resolved buff values.
// The zero Table is valid and returns neutral values for every key.
type Table struct {
	values map[Key]float64
}

// Resolve builds a Table from scratch. Every key in base starts at its
// neutral value so it appears in Map even without modifiers.
//
// Multiplicative keys compound per stack (1.25 x3 = 1.25^3), additive keys
// sum value*stacks. The result does not depend on modifier order.
func Resolve(base []Key, mods ...Modifier) Table {
	values := make(map[Key]float64, len(base)+len(mods))
	for _, k := range base {
		values[k] = Neutral(k)
	}

	for _, mod := range mods {
		stacks := mod.Stacks
		if stacks < 1 {
			stacks = 1
		}
		cur, ok := values[mod.Key]
		if !ok {
			cur = Neutral(mod.Key)
		}
		switch mod.Key.Type() {
		case ModMul:
			cur *= math.Pow(mod.Value, float64(stacks))
		case ModAdd:
			cur += mod.Value * float64(stacks)
		}
		values[mod.Key] = cur
	}

	return Table{values: values}
}

// Get returns the resolved value for k, or its neutral value when absent.
func (t Table) Get(k Key) float64 {
	if v, ok := t.values[k]; ok {
		return v
	}
	return Neutral(k)
}

// Map returns a copy of the resolved values.
func (t Table) Map() map[Key]float64 {
	out := make(map[Key]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Keys returns the resolved keys in sorted order.
func (t Table) Keys() []Key {
	keys := make([]Key, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// IsNeutral reports whether every resolved value equals its identity.
func (t Table) IsNeutral() bool {
	for k, v := range t.values {
		if v != Neutral(k) {
			return false
		}
	}
	return true
}

// Equal reports whether both tables resolve every key to the same value.
func (t Table) Equal(o Table) bool {
	for k, v := range t.values {
		if o.Get(k) != v {
			return false
		}
	}
	for k, v := range o.values {
		if t.Get(k) != v {
			return false
		}
	}
	return true
}

// Reader is satisfied by anything exposing resolved buff values.
type Reader interface {
	GetBuff(k Key) float64
}

// Combine folds the same key from several sources using the key's rule.
// Nil readers are skipped.
func Combine(k Key, sources ...Reader) float64 {
	result := Neutral(k)
	for _, src := range sources {
		if src == nil {
			continue
		}
		v := src.GetBuff(k)
		if k.Type() == ModMul {
			result *= v
		} else {
			result += v
		}
	}
	return result
}
