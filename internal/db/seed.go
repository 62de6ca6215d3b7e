package db

import (
	"errors" // Error inspection

	"qic_life/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// DefaultMissions is the starter mission catalog
func DefaultMissions() []domain.Mission {
	return []domain.Mission{
		{ID: "daily-walk", Title: "Take a 30 minute walk", Description: "Log a brisk 30 minute walk.", Category: "health", Difficulty: "easy", XPReward: 50, CoinReward: 10, LifeScoreReward: 1, RequiredLevel: 1, DurationDays: 1, Repeatable: true, Active: true},
		{ID: "hydration-week", Title: "Hydration week", Description: "Drink 8 glasses of water every day for a week.", Category: "health", Difficulty: "medium", XPReward: 150, CoinReward: 40, LifeScoreReward: 3, RequiredLevel: 1, DurationDays: 7, Active: true},
		{ID: "smoke-alarm-check", Title: "Test your smoke alarms", Description: "Test every smoke alarm at home and replace weak batteries.", Category: "safety", Difficulty: "easy", XPReward: 80, CoinReward: 20, LifeScoreReward: 2, RequiredLevel: 1, DurationDays: 3, Active: true},
		{ID: "emergency-fund", Title: "Start an emergency fund", Description: "Set aside one month of expenses.", Category: "finance", Difficulty: "hard", XPReward: 400, CoinReward: 120, LifeScoreReward: 6, RequiredLevel: 3, DurationDays: 30, Active: true},
		{ID: "policy-review", Title: "Review your policies", Description: "Read the coverage summary of every active insurance policy.", Category: "learning", Difficulty: "medium", XPReward: 200, CoinReward: 50, LifeScoreReward: 4, RequiredLevel: 2, DurationDays: 7, Active: true},
		{ID: "safe-driver", Title: "Safe driver fortnight", Description: "Two weeks without harsh braking or speeding alerts.", Category: "safety", Difficulty: "hard", XPReward: 350, CoinReward: 100, LifeScoreReward: 5, RequiredLevel: 4, DurationDays: 14, Active: true},
		{ID: "invite-friend", Title: "Invite a friend", Description: "Share your referral code with a friend.", Category: "social", Difficulty: "easy", XPReward: 60, CoinReward: 15, LifeScoreReward: 1, RequiredLevel: 1, DurationDays: 7, Active: true},
	}
}

// DefaultRewards is the starter reward catalog
func DefaultRewards() []domain.Reward {
	return []domain.Reward{
		{ID: "coffee-voucher", Title: "Coffee voucher", Description: "One free coffee at partner cafes.", Category: "lifestyle", CoinCost: 150, Stock: domain.UnlimitedStock, Active: true},
		{ID: "premium-discount-5", Title: "5% premium discount", Description: "5% off your next motor or home premium.", Category: "insurance", CoinCost: 800, Stock: domain.UnlimitedStock, Active: true},
		{ID: "gym-day-pass", Title: "Gym day pass", Description: "A day pass at partner gyms.", Category: "health", CoinCost: 300, Stock: 200, Active: true},
		{ID: "roadside-assist", Title: "Free roadside assistance", Description: "One year of roadside assistance.", Category: "insurance", CoinCost: 1200, Stock: 50, Active: true},
	}
}

// Seed inserts the default missions and rewards that are not present yet
func Seed(db *gorm.DB) error {
	inserted := 0 // Count of new rows
	for _, m := range DefaultMissions() {
		var existing domain.Mission
		err := db.Where("id = ?", m.ID).First(&existing).Error
		if err == nil {
			continue // Already seeded
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}
		inserted++
	}
	for _, r := range DefaultRewards() {
		var existing domain.Reward
		err := db.Where("id = ?", r.ID).First(&existing).Error
		if err == nil {
			continue // Already seeded
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&r).Error; err != nil {
			return err
		}
		inserted++
	}
	logrus.WithField("inserted", inserted).Info("Seed completed.")
	return nil
}
