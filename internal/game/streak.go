package game

import "time" // Timestamps and durations

// StreakMilestone is the number of consecutive days that earns a bonus
const StreakMilestone = 7

// StreakBonusCoins is paid on every milestone day
const StreakBonusCoins int64 = 50

// Day truncates t to midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreak returns the streak after activity on today.
// Activity on the same day keeps the streak, the day after extends it, anything else restarts it.
func NextStreak(lastActive *time.Time, today time.Time, current int) int {
	if lastActive == nil {
		return 1
	}
	last := Day(*lastActive)
	now := Day(today)
	switch {
	case last.Equal(now):
		if current < 1 {
			return 1
		}
		return current
	case last.AddDate(0, 0, 1).Equal(now):
		return current + 1
	default:
		return 1
	}
}

// StreakBonus returns the coins earned when moving from previous to next streak
func StreakBonus(previous, next int) int64 {
	if next > previous && next > 0 && next%StreakMilestone == 0 {
		return StreakBonusCoins
	}
	return 0
}

// StreakCutoff is the earliest last active day that keeps a streak alive today
func StreakCutoff(today time.Time) time.Time {
	return Day(today).AddDate(0, 0, -1)
}

// StreakBroken reports whether a streak ending on lastActive has lapsed by today
func StreakBroken(lastActive *time.Time, today time.Time) bool {
	if lastActive == nil {
		return true
	}
	return Day(*lastActive).Before(StreakCutoff(today))
}
