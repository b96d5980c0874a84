package model

import (
	"math"
	"sync"

	"github.com/udisondev/highsociety/internal/game/buff"
)

// Base player vitals before any buff is applied.
const (
	BaseMaxHealth       = 100
	BaseMaxStamina      = 100
	BaseDashCharges     = 1
	BaseDashStamina     = 20
	BaseMoveSpeed       = 100.0
	BaseSprintSpeed     = 160.0
	BasePrimaryDamage   = 15
	BaseSecondaryDamage = 25
)

// Player описывает игрока в оверворлде.
// Owns run vitals (health, stamina, dash charges) and reads buffs from two
// independent sources: the temporary run upgrades and permanent abilities.
//
// Thread-safe: all methods are protected by sync.RWMutex.
type Player struct {
	mu sync.RWMutex

	name      string
	pos       Position
	health    int
	maxHealth int // base, without ability bonus
	stamina   float64
	maxStam   float64
	dashUsed  int

	// Buff sources. Either may be nil.
	runBuffs  buff.Reader
	permBuffs buff.Reader
}

// NewPlayer creates a player at full health and stamina.
func NewPlayer(name string, pos Position) *Player {
	return &Player{
		name:      name,
		pos:       pos,
		health:    BaseMaxHealth,
		maxHealth: BaseMaxHealth,
		stamina:   BaseMaxStamina,
		maxStam:   BaseMaxStamina,
	}
}

// Name returns the player name.
func (p *Player) Name() string { return p.name }

// SetBuffSources wires the temporary and permanent buff readers.
func (p *Player) SetBuffSources(run, perm buff.Reader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runBuffs = run
	p.permBuffs = perm
}

// Position returns the current world position.
func (p *Player) Position() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// SetPosition moves the player.
func (p *Player) SetPosition(pos Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = pos
}

// Health returns current HP.
func (p *Player) Health() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// MaxHealth returns max HP including permanent ability bonuses.
func (p *Player) MaxHealth() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxHealthLocked()
}

func (p *Player) maxHealthLocked() int {
	bonus := 0.0
	if p.permBuffs != nil {
		bonus = p.permBuffs.GetBuff(buff.MaxHealthBonus)
	}
	return p.maxHealth + int(bonus)
}

// SetHealth sets HP clamped to 0..MaxHealth.
func (p *Player) SetHealth(hp int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health = clampInt(hp, 0, p.maxHealthLocked())
}

// Heal restores up to amount HP and returns the HP actually applied.
// Dead players cannot be healed.
func (p *Player) Heal(amount int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount <= 0 || p.health <= 0 {
		return 0
	}
	before := p.health
	p.health = clampInt(p.health+amount, 0, p.maxHealthLocked())
	return p.health - before
}

// TakeDamage reduces HP and returns the damage actually applied.
func (p *Player) TakeDamage(amount int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount <= 0 {
		return 0
	}
	before := p.health
	p.health = max(p.health-amount, 0)
	return before - p.health
}

// IsDead returns true when HP is 0.
func (p *Player) IsDead() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health <= 0
}

// Stamina returns current stamina.
func (p *Player) Stamina() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stamina
}

// MaxStamina returns max stamina.
func (p *Player) MaxStamina() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxStam
}

// RestoreStamina adds stamina up to the max.
func (p *Player) RestoreStamina(amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stamina = math.Min(p.maxStam, p.stamina+math.Max(0, amount))
}

// StaminaCost scales a base stamina cost by staminaCostMultiplier.
func (p *Player) StaminaCost(base float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return base * p.combined(buff.StaminaCostMultiplier)
}

// SpendStamina deducts the buffed cost of base. Returns false (no change)
// when there is not enough stamina.
func (p *Player) SpendStamina(base float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cost := base * p.combined(buff.StaminaCostMultiplier)
	if p.stamina < cost {
		return false
	}
	p.stamina -= cost
	return true
}

// MaxDashCharges returns base charges plus every extraDashCharges bonus.
func (p *Player) MaxDashCharges() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxDashLocked()
}

func (p *Player) maxDashLocked() int {
	return BaseDashCharges + int(math.Floor(p.combined(buff.ExtraDashCharges)))
}

// DashCharges returns the charges currently available.
// Losing a timed dash upgrade shrinks the pool immediately.
func (p *Player) DashCharges() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return max(p.maxDashLocked()-p.dashUsed, 0)
}

// TryDash consumes one dash charge and its stamina cost.
func (p *Player) TryDash() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.health <= 0 || p.dashUsed >= p.maxDashLocked() {
		return false
	}
	cost := BaseDashStamina * p.combined(buff.StaminaCostMultiplier)
	if p.stamina < cost {
		return false
	}
	p.stamina -= cost
	p.dashUsed++
	return true
}

// RechargeDash restores one spent dash charge.
func (p *Player) RechargeDash() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dashUsed > 0 {
		p.dashUsed--
	}
}

// MoveSpeed returns walk or sprint speed scaled by speedMultiplier.
func (p *Player) MoveSpeed(sprinting bool) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	base := BaseMoveSpeed
	if sprinting {
		base = BaseSprintSpeed
	}
	return base * p.combined(buff.SpeedMultiplier)
}

// PrimaryDamage returns the buffed primary attack damage (floored).
func (p *Player) PrimaryDamage() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(math.Floor(BasePrimaryDamage * p.combined(buff.DamageMultiplier)))
}

// SecondaryDamage returns the buffed secondary attack damage (floored).
func (p *Player) SecondaryDamage() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(math.Floor(BaseSecondaryDamage * p.combined(buff.DamageMultiplier)))
}

// ResetVitals restores full health, stamina and dash charges.
func (p *Player) ResetVitals() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health = p.maxHealthLocked()
	p.stamina = p.maxStam
	p.dashUsed = 0
}

// combined folds both buff sources. Must be called with mu held.
func (p *Player) combined(k buff.Key) float64 {
	return buff.Combine(k, p.runBuffs, p.permBuffs)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
