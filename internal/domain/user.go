package domain

import (
	"strings" // String manipulation
	"time"    // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID                  string     `gorm:"primaryKey;size:36" json:"id"`                       // Primary key
	Email               string     `gorm:"uniqueIndex;size:255;not null" json:"email"`         // Unique, lower-cased email
	Password            string     `gorm:"not null" json:"-"`                                  // Hashed password
	Name                string     `gorm:"size:120" json:"name"`                               // Display name
	Role                string     `gorm:"size:16;default:user" json:"role"`                   // Role: user or admin
	Coins               int64      `gorm:"not null;default:0" json:"coins"`                    // In-app currency
	XP                  int64      `gorm:"not null;default:0" json:"xp"`                       // Experience points
	Level               int        `gorm:"not null" json:"level"`                              // Level derived from XP
	LifeScore           int        `gorm:"column:lifescore;not null" json:"lifescore"`         // Engagement score 0-100
	CurrentStreak       int        `gorm:"not null;default:0" json:"current_streak"`           // Consecutive active days
	LongestStreak       int        `gorm:"not null;default:0" json:"longest_streak"`           // Best streak so far
	LastActiveOn        *time.Time `json:"last_active_on,omitempty"`                           // Day of the last completed mission
	ReferralCode        string     `gorm:"uniqueIndex;size:16" json:"referral_code"`           // Code other users apply
	OnboardingCompleted bool       `gorm:"not null;default:false" json:"onboarding_completed"` // Onboarding flag
	Age                 int        `json:"age,omitempty"`                                      // Age in years
	Occupation          string     `gorm:"size:120" json:"occupation,omitempty"`               // Occupation
	Dependents          int        `json:"dependents"`                                         // Number of dependents
	AnnualIncome        float64    `json:"annual_income,omitempty"`                            // Annual income
	City                string     `gorm:"size:120" json:"city,omitempty"`                     // City
	Integrations        string     `gorm:"size:255" json:"-"`                                  // Comma-joined integration ids
	CreatedAt           time.Time  `json:"created_at"`                                         // Creation time
	UpdatedAt           time.Time  `json:"updated_at"`                                         // Last update time
}

// BeforeCreate assigns a UUID when none is set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IntegrationList splits the stored integrations
func (u *User) IntegrationList() []string {
	if u.Integrations == "" {
		return []string{}
	}
	return strings.Split(u.Integrations, ",")
}

// SetIntegrations stores the integrations as a comma-joined string
func (u *User) SetIntegrations(list []string) {
	u.Integrations = strings.Join(list, ",")
}
