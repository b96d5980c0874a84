package data

import "strings"

// XP rewards for progression sources.
const (
	XPKillMelee         int64 = 15
	XPKillRanger        int64 = 20
	XPKillGuard         int64 = 25
	XPOpenCache         int64 = 10
	XPCompleteTrade     int64 = 8
	XPDiscoverZone      int64 = 30
	XPCompleteObjective int64 = 50
)

// Enemy types reported by combat.
const (
	EnemyMelee  = "melee"
	EnemyRanger = "ranger"
	EnemyGuard  = "guard"
)

// KillXP returns the XP reward for killing an enemy of the given type.
// Unknown or empty types pay the melee reward.
func KillXP(enemyType string) int64 {
	switch strings.ToLower(enemyType) {
	case EnemyRanger:
		return XPKillRanger
	case EnemyGuard:
		return XPKillGuard
	default:
		return XPKillMelee
	}
}

// OrbDropRate returns the chance (0..1) an enemy drops an upgrade orb on death.
func OrbDropRate(enemyType string) float64 {
	switch strings.ToLower(enemyType) {
	case EnemyMelee, "":
		return 0.20
	case EnemyRanger:
		return 0.30
	default:
		return 0
	}
}
