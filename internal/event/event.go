// Package event is the typed publish/subscribe bus shared by run systems and the HUD.
// Every notification is a concrete struct; subscribers register per event type.
package event

import "github.com/udisondev/highsociety/internal/game/buff"

// Kind identifies the type of an event.
type Kind uint8

const (
	KindUpgradeGained Kind = iota + 1
	KindUpgradeMaxed
	KindUpgradeExpired
	KindUpgradesLost
	KindExtractionBonus
	KindBuffsChanged
	KindXPGained
	KindPlayerLeveled
	KindAbilityUnlocked
	KindPlayerDied
	KindExtractionSucceeded
	KindRunFled
	KindUpkeepWarning
	KindEnemyKilled

	kindCount
)

var kindNames = [kindCount]string{
	KindUpgradeGained:       "upgradeGained",
	KindUpgradeMaxed:        "upgradeMaxed",
	KindUpgradeExpired:      "upgradeExpired",
	KindUpgradesLost:        "upgradesLost",
	KindExtractionBonus:     "extractionBonus",
	KindBuffsChanged:        "buffsChanged",
	KindXPGained:            "xpGained",
	KindPlayerLeveled:       "playerLeveled",
	KindAbilityUnlocked:     "abilityUnlocked",
	KindPlayerDied:          "playerDied",
	KindExtractionSucceeded: "extractionSuccess",
	KindRunFled:             "runFled",
	KindUpkeepWarning:       "upkeepWarning",
	KindEnemyKilled:         "enemyKilled",
}

// String returns the signal name used in logs.
func (k Kind) String() string {
	if k == 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Event is implemented by every notification carried on the Bus.
type Event interface {
	Kind() Kind
}

// UpgradeGained is published after a successful pickup.
type UpgradeGained struct {
	UpgradeID   string
	Name        string
	Stacks      int
	TotalActive int // distinct kinds held after the grant
}

// UpgradeMaxed is published when a pickup is rejected at the stack cap.
type UpgradeMaxed struct {
	UpgradeID string
	Name      string
	Stacks    int
}

// UpgradeExpired is published when a timed upgrade runs out.
type UpgradeExpired struct {
	UpgradeID string
	Name      string
}

// UpgradesLost is published when a failed run clears the upgrades.
// Count is the number of distinct kinds held, not pickups.
type UpgradesLost struct {
	Count  int
	Reason string
}

// ExtractionBonus is published when held upgrades convert to XP.
type ExtractionBonus struct {
	Upgrades int
	BonusXP  int64
}

// BuffsChanged carries a copy of a freshly resolved buff table.
type BuffsChanged struct {
	Source string // "run" or "abilities"
	Buffs  map[buff.Key]float64
}

// XPGained is published on every progression XP grant.
type XPGained struct {
	Amount         int64
	Source         string
	TotalXP        int64
	Level          int
	XPForNextLevel int64 // -1 at max level
	LeveledUp      bool
}

// PlayerLeveled is published once per level gained.
type PlayerLeveled struct {
	Level         int
	AbilityPoints int
}

// AbilityUnlocked is published after an ability point purchase.
type AbilityUnlocked struct {
	AbilityID       string
	Name            string
	RemainingPoints int
}

// PlayerDied signals a failed run.
type PlayerDied struct {
	Depth     int
	RunTimeMs int64
}

// ExtractionSucceeded signals a successful return to town.
type ExtractionSucceeded struct {
	Direction string
	Depth     int
	RunTimeMs int64
}

// RunFled signals a manual abort back to town.
type RunFled struct {
	Depth     int
	RunTimeMs int64
}

// UpkeepWarning is published when hunger or thirst runs low.
type UpkeepWarning struct {
	Hunger int
	Thirst int
	Sleep  int
}

// EnemyKilled is published by combat when an enemy dies.
type EnemyKilled struct {
	EnemyType string
	X, Y      float64
}

func (UpgradeGained) Kind() Kind       { return KindUpgradeGained }
func (UpgradeMaxed) Kind() Kind        { return KindUpgradeMaxed }
func (UpgradeExpired) Kind() Kind      { return KindUpgradeExpired }
func (UpgradesLost) Kind() Kind        { return KindUpgradesLost }
func (ExtractionBonus) Kind() Kind     { return KindExtractionBonus }
func (BuffsChanged) Kind() Kind        { return KindBuffsChanged }
func (XPGained) Kind() Kind            { return KindXPGained }
func (PlayerLeveled) Kind() Kind       { return KindPlayerLeveled }
func (AbilityUnlocked) Kind() Kind     { return KindAbilityUnlocked }
func (PlayerDied) Kind() Kind          { return KindPlayerDied }
func (ExtractionSucceeded) Kind() Kind { return KindExtractionSucceeded }
func (RunFled) Kind() Kind             { return KindRunFled }
func (UpkeepWarning) Kind() Kind       { return KindUpkeepWarning }
func (EnemyKilled) Kind() Kind         { return KindEnemyKilled }
