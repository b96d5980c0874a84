package config

import (
	"errors"
	"time"
)

// Run holds the balance values for one overworld run.
type Run struct {
	// World
	WorldWidth    float64       `yaml:"world_width" env:"WORLD_WIDTH"`
	WorldHeight   float64       `yaml:"world_height" env:"WORLD_HEIGHT"`
	ZonePad       float64       `yaml:"zone_pad" env:"ZONE_PAD"`
	ZoneCooldown  time.Duration `yaml:"zone_cooldown" env:"ZONE_COOLDOWN"`
	ArrivalInset  float64       `yaml:"arrival_inset" env:"ARRIVAL_INSET"`
	ArrivalJitter float64       `yaml:"arrival_jitter" env:"ARRIVAL_JITTER"`
	Seed          uint64        `yaml:"seed" env:"SEED"` // 0 = random

	// Upgrades
	ExtractionXPPerUpgrade int64         `yaml:"extraction_xp_per_upgrade" env:"EXTRACTION_XP_PER_UPGRADE"`
	RegenInterval          time.Duration `yaml:"regen_interval" env:"REGEN_INTERVAL"`

	// Orbs
	OrbLifetime    time.Duration `yaml:"orb_lifetime" env:"ORB_LIFETIME"`
	OrbRadius      float64       `yaml:"orb_radius" env:"ORB_RADIUS"`
	OrbPickupDelay time.Duration `yaml:"orb_pickup_delay" env:"ORB_PICKUP_DELAY"`

	// Upkeep
	HourLength time.Duration `yaml:"hour_length" env:"HOUR_LENGTH"` // real time per in-game hour
}

// DefaultRun returns the stock balance.
func DefaultRun() Run {
	return Run{
		WorldWidth:             1600,
		WorldHeight:            1200,
		ZonePad:                24,
		ZoneCooldown:           800 * time.Millisecond,
		ArrivalInset:           96,
		ArrivalJitter:          24,
		ExtractionXPPerUpgrade: 5,
		RegenInterval:          time.Second,
		OrbLifetime:            30 * time.Second,
		OrbRadius:              24,
		OrbPickupDelay:         200 * time.Millisecond,
		HourLength:             5 * time.Second,
	}
}

// Validate rejects geometry the boundary strips cannot be built from.
func (r Run) Validate() error {
	var errs []error
	if r.ZonePad <= 0 {
		errs = append(errs, errors.New("run.zone_pad must be positive"))
	}
	if r.WorldWidth <= 2*max(r.ZonePad, r.ArrivalInset) || r.WorldHeight <= 2*max(r.ZonePad, r.ArrivalInset) {
		errs = append(errs, errors.New("run world is too small for its zones"))
	}
	if r.ArrivalInset-r.ArrivalJitter <= r.ZonePad {
		errs = append(errs, errors.New("run.arrival_inset must keep arrivals out of the zones"))
	}
	if r.ExtractionXPPerUpgrade < 0 {
		errs = append(errs, errors.New("run.extraction_xp_per_upgrade must not be negative"))
	}
	if r.RegenInterval <= 0 || r.HourLength <= 0 || r.OrbLifetime <= 0 {
		errs = append(errs, errors.New("run intervals must be positive"))
	}
	return errors.Join(errs...)
}
