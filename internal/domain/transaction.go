package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// Coin transaction types
const (
	TxSignupBonus      = "signup_bonus"
	TxOnboardingBonus  = "onboarding_bonus"
	TxMissionReward    = "mission_reward"
	TxStreakBonus      = "streak_bonus"
	TxReferralBonus    = "referral_bonus"
	TxRewardRedemption = "reward_redemption"
	TxAIRecommendation = "ai_recommendation"
	TxAIScenario       = "ai_scenario"
	TxAIRefund         = "ai_refund"
)

// CoinTransaction is one row of the coin ledger
type CoinTransaction struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`          // Primary key
	UserID       string    `gorm:"index;size:36;not null" json:"user_id"` // Owner of the balance
	Amount       int64     `gorm:"not null" json:"amount"`                // Signed amount, negative for debits
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`         // Balance right after this movement
	Type         string    `gorm:"index;size:32;not null" json:"type"`    // Transaction type
	Reference    string    `gorm:"size:64" json:"reference,omitempty"`    // Mission, reward or referral id
	CreatedAt    time.Time `gorm:"index" json:"created_at"`               // Timestamp of creation
}

// BeforeCreate assigns a UUID when none is set
func (t *CoinTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
