package data

import "testing"

func TestGetExpForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{0, 0},
		{1, 0},
		{2, 50},
		{5, 350},
		{10, 1800},
		{11, 1800}, // clamped
		{100, 1800},
	}

	for _, tt := range tests {
		got := GetExpForLevel(tt.level)
		if got != tt.want {
			t.Errorf("GetExpForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestNextLevelExp(t *testing.T) {
	tests := []struct {
		level  int
		want   int64
		wantOK bool
	}{
		{0, 50, true},
		{1, 50, true},
		{4, 350, true},
		{9, 1800, true},
		{10, 0, false},
		{12, 0, false},
	}

	for _, tt := range tests {
		got, ok := NextLevelExp(tt.level)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NextLevelExp(%d) = (%d, %v), want (%d, %v)", tt.level, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestGetLevelForExp(t *testing.T) {
	tests := []struct {
		exp        int64
		startLevel int
		want       int
	}{
		{0, 1, 1},
		{49, 1, 1},
		{50, 1, 2},
		{400, 1, 5},
		{519, 1, 5},
		{520, 1, 6},
		{1800, 1, 10},
		{99999, 1, 10}, // capped
		{0, 4, 4},      // never drops below start
		{400, 0, 5},
	}

	for _, tt := range tests {
		got := GetLevelForExp(tt.exp, tt.startLevel)
		if got != tt.want {
			t.Errorf("GetLevelForExp(%d, %d) = %d, want %d", tt.exp, tt.startLevel, got, tt.want)
		}
	}
}

func TestExperienceTableMonotonic(t *testing.T) {
	for i := 1; i < MaxLevel; i++ {
		if ExperienceTable[i] <= ExperienceTable[i-1] {
			t.Errorf("ExperienceTable[%d]=%d <= ExperienceTable[%d]=%d",
				i, ExperienceTable[i], i-1, ExperienceTable[i-1])
		}
	}
}
