package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID generation
	"gorm.io/gorm"           // GORM ORM library
)

// UnlimitedStock marks a reward that never runs out
const UnlimitedStock = -1

// Reward Model
type Reward struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`   // Stable slug
	Title       string    `gorm:"size:160;not null" json:"title"` // Title
	Description string    `gorm:"type:text" json:"description"`   // Description
	Category    string    `gorm:"size:32" json:"category"`        // Category
	CoinCost    int64     `gorm:"not null" json:"coin_cost"`      // Price in coins
	Stock       int       `gorm:"not null" json:"stock"`          // Remaining stock, -1 for unlimited
	Active      bool      `gorm:"not null" json:"active"`         // Listed to users
	CreatedAt   time.Time `json:"created_at"`                     // Creation time
	UpdatedAt   time.Time `json:"updated_at"`                     // Last update time
}

// Redemption records a reward bought with coins
type Redemption struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`            // Primary key
	UserID      string    `gorm:"index;size:36;not null" json:"user_id"`   // Buyer
	RewardID    string    `gorm:"index;size:64;not null" json:"reward_id"` // Reward slug
	CoinsSpent  int64     `gorm:"not null" json:"coins_spent"`             // Price paid
	VoucherCode string    `gorm:"uniqueIndex;size:32" json:"voucher_code"` // Code handed to the user
	Status      string    `gorm:"size:16;default:issued" json:"status"`    // Voucher status
	CreatedAt   time.Time `json:"created_at"`                              // Creation time
}

// BeforeCreate assigns a UUID when none is set
func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
