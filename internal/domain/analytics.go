package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// AnalyticsEvent is one tracked event
type AnalyticsEvent struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`             // Primary key
	UserID     *string   `gorm:"index;size:36" json:"user_id,omitempty"`   // Nullable for anonymous events
	EventType  string    `gorm:"index;size:64;not null" json:"event_type"` // Event name
	Properties string    `gorm:"type:text" json:"properties,omitempty"`    // JSON encoded properties
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                  // Creation time
}

// BeforeCreate assigns a UUID when none is set
func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every model for migrations
func AllModels() []any {
	return []any{
		&User{},
		&CoinTransaction{},
		&Mission{},
		&UserMission{},
		&Reward{},
		&Redemption{},
		&Referral{},
		&AnalyticsEvent{},
	}
}
