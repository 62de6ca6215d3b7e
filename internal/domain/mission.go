package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// Mission statuses
const (
	MissionAvailable = "available"
	MissionActive    = "active"
	MissionCompleted = "completed"
	MissionFailed    = "failed"
	MissionLocked    = "locked"
)

// Mission categories
var MissionCategories = []string{"health", "safety", "finance", "learning", "social"}

// Mission difficulties
var MissionDifficulties = []string{"easy", "medium", "hard"}

// Mission Model
type Mission struct {
	ID              string    `gorm:"primaryKey;size:64" json:"id"`               // Stable slug
	Title           string    `gorm:"size:160;not null" json:"title"`             // Title
	Description     string    `gorm:"type:text" json:"description"`               // Description
	Category        string    `gorm:"index;size:32;not null" json:"category"`     // Category
	Difficulty      string    `gorm:"size:16;not null" json:"difficulty"`         // Difficulty
	XPReward        int64     `gorm:"not null;default:0" json:"xp_reward"`        // XP granted on completion
	CoinReward      int64     `gorm:"not null;default:0" json:"coin_reward"`      // Coins granted on completion
	LifeScoreReward int       `gorm:"not null;default:0" json:"lifescore_reward"` // LifeScore delta on completion
	RequiredLevel   int       `gorm:"not null;default:1" json:"required_level"`   // Minimum level to start
	DurationDays    int       `gorm:"not null;default:7" json:"duration_days"`    // Days before an active mission expires
	Repeatable      bool      `gorm:"not null;default:false" json:"repeatable"`   // Can be started again after completion
	Active          bool      `gorm:"not null" json:"active"`                     // Listed to users
	CreatedAt       time.Time `json:"created_at"`                                 // Creation time
	UpdatedAt       time.Time `json:"updated_at"`                                 // Last update time
}

// UserMission tracks one user's progress on one mission
type UserMission struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`                                    // Primary key
	UserID      string     `gorm:"uniqueIndex:idx_user_mission;size:36;not null" json:"user_id"`    // Owner
	MissionID   string     `gorm:"uniqueIndex:idx_user_mission;size:64;not null" json:"mission_id"` // Mission slug
	Status      string     `gorm:"index;size:16;not null" json:"status"`                            // active, completed or failed
	Progress    int        `gorm:"not null;default:0" json:"progress"`                              // 0-100
	Completions int        `gorm:"not null;default:0" json:"completions"`                           // Times completed
	StartedAt   *time.Time `json:"started_at,omitempty"`                                            // Last start time
	CompletedAt *time.Time `json:"completed_at,omitempty"`                                          // Last completion time
	CreatedAt   time.Time  `json:"created_at"`                                                      // Creation time
	UpdatedAt   time.Time  `json:"updated_at"`                                                      // Last update time
}

// BeforeCreate assigns a UUID when none is set
func (m *UserMission) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
