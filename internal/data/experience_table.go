package data

// MaxLevel is the highest level reachable through the XP table.
const MaxLevel = 10

// ExperienceTable holds cumulative XP required to reach each level.
// Index = level - 1; level 1 starts at 0 XP.
var ExperienceTable = [MaxLevel]int64{
	0,    // 1
	50,   // 2
	120,  // 3
	220,  // 4
	350,  // 5
	520,  // 6
	730,  // 7
	1000, // 8
	1350, // 9
	1800, // 10
}

// GetExpForLevel returns cumulative XP required to reach level.
// Levels below 1 return 0; levels above MaxLevel are clamped.
func GetExpForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return ExperienceTable[level-1]
}

// NextLevelExp returns the cumulative XP needed to leave level.
// ok is false once the table is exhausted.
func NextLevelExp(level int) (exp int64, ok bool) {
	if level < 1 {
		level = 1
	}
	if level >= MaxLevel {
		return 0, false
	}
	return ExperienceTable[level], true
}

// GetLevelForExp returns the level reached with exp, searching upward from startLevel.
// The result never drops below startLevel.
func GetLevelForExp(exp int64, startLevel int) int {
	if startLevel < 1 {
		startLevel = 1
	}
	level := startLevel
	for level < MaxLevel && exp >= ExperienceTable[level] {
		level++
	}
	return level
}
