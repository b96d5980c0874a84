package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/udisondev/highsociety/internal/game/buff"
)

// ErrUnknownAbility is returned when an ability id is not in the catalog.
var ErrUnknownAbility = errors.New("unknown ability")

// Ability is a permanent unlock bought with ability points.
type Ability struct {
	ID          string
	Name        string
	Description string
	Tier        int
	Cost        int
	Effect      map[buff.Key]float64
	Requires    string // ability id, empty when none
}

var abilityTable = []*Ability{
	// Tier 1
	{ID: "damage_1", Name: "Sharpened Edge", Description: "+15% damage", Tier: 1, Cost: 1,
		Effect: map[buff.Key]float64{buff.DamageMultiplier: 1.15}},
	{ID: "speed_1", Name: "Light Feet", Description: "+12% move speed", Tier: 1, Cost: 1,
		Effect: map[buff.Key]float64{buff.SpeedMultiplier: 1.12}},
	{ID: "health_1", Name: "Tough Hide", Description: "+20 max health", Tier: 1, Cost: 1,
		Effect: map[buff.Key]float64{buff.MaxHealthBonus: 20}},
	{ID: "trade_1", Name: "Silver Tongue", Description: "+25% sell prices", Tier: 1, Cost: 1,
		Effect: map[buff.Key]float64{buff.SellPriceMultiplier: 1.25}},

	// Tier 2
	{ID: "damage_2", Name: "Brutal Force", Description: "+30% damage", Tier: 2, Cost: 2,
		Effect: map[buff.Key]float64{buff.DamageMultiplier: 1.30}, Requires: "damage_1"},
	{ID: "dash_extra", Name: "Wind Walker", Description: "+1 dash charge", Tier: 2, Cost: 2,
		Effect: map[buff.Key]float64{buff.ExtraDashCharges: 1}, Requires: "speed_1"},
	{ID: "health_2", Name: "Iron Will", Description: "+40 max health, slow regen", Tier: 2, Cost: 2,
		Effect: map[buff.Key]float64{buff.MaxHealthBonus: 40, buff.HealthRegen: 1}, Requires: "health_1"},
	{ID: "aoe_size", Name: "Expanding Force", Description: "+50% AOE attack size", Tier: 2, Cost: 2,
		Effect: map[buff.Key]float64{buff.AOEMultiplier: 1.5}, Requires: "damage_1"},

	// Tier 3
	{ID: "lifesteal", Name: "Vampiric Strike", Description: "Heal 10% of damage dealt", Tier: 3, Cost: 3,
		Effect: map[buff.Key]float64{buff.LifestealPercent: 0.10}, Requires: "damage_2"},
	{ID: "double_dash", Name: "Blink Step", Description: "Dash twice as far", Tier: 3, Cost: 3,
		Effect: map[buff.Key]float64{buff.DashDistanceMultiplier: 2.0}, Requires: "dash_extra"},
}

var abilityIndex = func() map[string]*Ability {
	m := make(map[string]*Ability, len(abilityTable))
	for _, a := range abilityTable {
		m[a.ID] = a
	}
	return m
}()

// AbilityByID looks up an ability by id (case-insensitive).
func AbilityByID(id string) (*Ability, error) {
	norm := strings.ToLower(strings.TrimSpace(id))
	if a, ok := abilityIndex[norm]; ok {
		return a, nil
	}
	if s, ok := Suggest(norm, AbilityIDs()); ok {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownAbility, id, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAbility, id)
}

// AbilityIDs returns every ability id in catalog order.
func AbilityIDs() []string {
	ids := make([]string, len(abilityTable))
	for i, a := range abilityTable {
		ids[i] = a.ID
	}
	return ids
}

// Abilities returns every ability in catalog order.
func Abilities() []*Ability {
	out := make([]*Ability, len(abilityTable))
	copy(out, abilityTable)
	return out
}
