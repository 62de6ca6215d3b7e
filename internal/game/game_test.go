package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestXPBoundaries(t *testing.T) {
	assert.Equal(t, int64(0), XPForLevel(1))
	assert.Equal(t, int64(100), XPForLevel(2))
	assert.Equal(t, int64(283), XPForLevel(3))

	assert.Equal(t, 1, LevelForXP(0))
	assert.Equal(t, 1, LevelForXP(99))
	assert.Equal(t, 2, LevelForXP(100))
	assert.Equal(t, 2, LevelForXP(282))
	assert.Equal(t, 3, LevelForXP(283))

	l10 := XPForLevel(10)
	assert.Equal(t, 10, LevelForXP(l10))
	assert.Equal(t, 9, LevelForXP(l10-1))
}

func TestProgress(t *testing.T) {
	p := Progress(150)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(100), p.LevelStartXP)
	assert.Equal(t, int64(283), p.NextLevelXP)
	assert.Equal(t, int64(50), p.XPIntoLevel)
	assert.Equal(t, int64(133), p.XPToNextLevel)
	assert.InDelta(t, 27.32, p.Percent, 0.01)

	assert.Equal(t, 1, Progress(-5).Level)
}

func TestClampLifeScore(t *testing.T) {
	assert.Equal(t, 0, ClampLifeScore(-3))
	assert.Equal(t, 100, ClampLifeScore(140))
	assert.Equal(t, 55, ApplyLifeScore(50, 5))
	assert.Equal(t, 100, ApplyLifeScore(98, 5))
}

func TestNextStreak(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	sameDay := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	longAgo := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, NextStreak(nil, today, 0))
	assert.Equal(t, 4, NextStreak(&sameDay, today, 4))
	assert.Equal(t, 5, NextStreak(&yesterday, today, 4))
	assert.Equal(t, 1, NextStreak(&longAgo, today, 4))
}

func TestStreakBonusAndBroken(t *testing.T) {
	assert.Equal(t, StreakBonusCoins, StreakBonus(6, 7))
	assert.Equal(t, int64(0), StreakBonus(7, 7))
	assert.Equal(t, int64(0), StreakBonus(5, 6))
	assert.Equal(t, StreakBonusCoins, StreakBonus(13, 14))

	today := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	twoDaysAgo := today.AddDate(0, 0, -2)
	assert.False(t, StreakBroken(&yesterday, today))
	assert.True(t, StreakBroken(&twoDaysAgo, today))
	assert.True(t, StreakBroken(nil, today))
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), StreakCutoff(today))
}

func TestAllowedIntegrations(t *testing.T) {
	assert.True(t, IsAllowedIntegration("fitbit"))
	assert.False(t, IsAllowedIntegration("myspace"))
}
