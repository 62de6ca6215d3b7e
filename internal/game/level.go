// Package game holds the XP, level, LifeScore and streak arithmetic.
package game

import "math" // Rounding

// LevelCurveCoef scales the XP curve: XPForLevel(L) = 100 * (L-1)^1.5
const LevelCurveCoef = 100.0

// maxLevel bounds the level search
const maxLevel = 1_000_000

// XPForLevel returns the total XP needed to reach the given level.
// Level 1 (and anything below) needs 0 XP.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	req := LevelCurveCoef * math.Pow(float64(level-1), 1.5)
	// Ceil so float rounding never makes a threshold easier.
	return int64(math.Ceil(req))
}

// LevelForXP returns the highest level L with XPForLevel(L) <= xp.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	low, high := 1, 2
	for XPForLevel(high) <= xp {
		low = high
		high *= 2
		if high > maxLevel {
			break
		}
	}
	for low+1 < high {
		mid := low + (high-low)/2
		if XPForLevel(mid) <= xp {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// LevelProgress describes where a user sits on the XP curve
type LevelProgress struct {
	Level         int     `json:"level"`
	XP            int64   `json:"xp"`
	LevelStartXP  int64   `json:"level_start_xp"`
	NextLevelXP   int64   `json:"next_level_xp"`
	XPIntoLevel   int64   `json:"xp_into_level"`
	XPToNextLevel int64   `json:"xp_to_next_level"`
	Percent       float64 `json:"percent"`
}

// Progress computes the level progress for a total XP value
func Progress(xp int64) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	start := XPForLevel(level)
	next := XPForLevel(level + 1)
	p := LevelProgress{
		Level:         level,
		XP:            xp,
		LevelStartXP:  start,
		NextLevelXP:   next,
		XPIntoLevel:   xp - start,
		XPToNextLevel: next - xp,
	}
	if span := next - start; span > 0 {
		p.Percent = math.Round(float64(p.XPIntoLevel)/float64(span)*10000) / 100
	}
	return p
}
