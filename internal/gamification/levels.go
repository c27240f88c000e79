package gamification

import "math"

// XPForLevel is the cumulative XP a user needs to advance past level L.
func XPForLevel(level int) int {
	if level < 1 {
		return 0
	}
	return int(math.Floor(100 * math.Pow(float64(level), 1.5)))
}

// LevelForXP returns the level for a cumulative XP total. Level 1 starts at 0 XP.
func LevelForXP(totalXP int) int {
	level := 1
	for totalXP >= XPForLevel(level) {
		level++
	}
	return level
}

type LevelProgress struct {
	Level        int `json:"level"`
	TotalXP      int `json:"total_xp"`
	LevelStartXP int `json:"level_start_xp"`
	NextLevelXP  int `json:"next_level_xp"`
	Percent      int `json:"percent"`
}

func Progress(totalXP int) LevelProgress {
	level := LevelForXP(totalXP)
	start := XPForLevel(level - 1)
	next := XPForLevel(level)
	pct := 0
	if span := next - start; span > 0 {
		pct = (totalXP - start) * 100 / span
	}
	return LevelProgress{Level: level, TotalXP: totalXP, LevelStartXP: start, NextLevelXP: next, Percent: pct}
}
