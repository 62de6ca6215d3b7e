package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// Referral statuses
const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
)

// Referral links a referrer to the user who applied their code
type Referral struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`                    // Primary key
	ReferrerID   string     `gorm:"index;size:36;not null" json:"referrer_id"`       // Owner of the code
	ReferredID   string     `gorm:"uniqueIndex;size:36;not null" json:"referred_id"` // A user is referred once
	CodeUsed     string     `gorm:"size:16;not null" json:"code_used"`               // Code applied
	Status       string     `gorm:"size:16;not null" json:"status"`                  // pending or completed
	BonusAwarded bool       `gorm:"not null;default:false" json:"bonus_awarded"`     // Bonuses paid out
	CompletedAt  *time.Time `json:"completed_at,omitempty"`                          // Completion time
	CreatedAt    time.Time  `json:"created_at"`                                      // Creation time
}

// BeforeCreate assigns a UUID when none is set
func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
