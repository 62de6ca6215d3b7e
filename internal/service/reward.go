package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"strings" // String helpers

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/repository" // Data access

	"github.com/google/uuid"       // UUID generation
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// VoucherPrefix starts every voucher code
const VoucherPrefix = "QIC-"

// RewardService lists rewards and sells them for coins
type RewardService struct {
	db        *gorm.DB          // Database handle
	rdb       *redis.Client     // Cache, nil when disabled
	analytics *AnalyticsService // Server side events
}

// RewardView is a reward with the caller's affordability
type RewardView struct {
	domain.Reward
	Affordable bool `json:"affordable"` // In stock and within the caller's balance
	InStock    bool `json:"in_stock"`   // Unlimited or stock left
}

// RedemptionResult is a successful redemption and the new balance
type RedemptionResult struct {
	Redemption *domain.Redemption `json:"redemption"` // Voucher issued
	Reward     *domain.Reward     `json:"reward"`     // Reward after the stock change
	Balance    int64              `json:"balance"`    // Coins left
}

// RewardInput is an admin's new reward
type RewardInput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CoinCost    int64  `json:"coin_cost"`
	Stock       *int   `json:"stock"`
	Active      *bool  `json:"active"`
}

// List returns the active rewards flagged by what the user can afford
func (s *RewardService) List(ctx context.Context, userID string) ([]RewardView, error) {
	user, err := repository.NewUserRepo(s.db).FindByID(ctx, userID) // Balance decides affordability
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	rewards, err := repository.NewRewardRepo(s.db).ListActive(ctx) // Listed rewards only
	if err != nil {
		return nil, err
	}
	views := make([]RewardView, 0, len(rewards))
	for _, rw := range rewards {
		inStock := rw.Stock == domain.UnlimitedStock || rw.Stock > 0 // -1 never runs out
		views = append(views, RewardView{
			Reward:     rw,
			Affordable: inStock && user.Coins >= rw.CoinCost,
			InStock:    inStock,
		})
	}
	return views, nil
}

// Redeem buys a reward: debit, stock, voucher and ledger row commit together
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID string) (*RedemptionResult, error) {
	var res *RedemptionResult
	// Atomic redemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rewards := repository.NewRewardRepo(tx)
		rw, err := rewards.FindByID(ctx, rewardID) // Find the reward
		if err != nil {
			return err // Return error to rollback
		}
		// Inactive rewards are hidden
		if rw == nil || !rw.Active {
			return notFound("reward")
		}
		// Check stock before touching the balance
		if rw.Stock != domain.UnlimitedStock && rw.Stock <= 0 {
			return newError(ErrConflict, "reward is out of stock")
		}
		// Deduct coins only if the balance covers the cost
		balance, err := repository.NewLedgerRepo(tx).Debit(ctx, userID, rw.CoinCost, domain.TxRewardRedemption, rw.ID)
		if errors.Is(err, repository.ErrInsufficientCoins) {
			return newError(ErrInsufficientCoins, "you need %d coins to redeem this reward", rw.CoinCost)
		}
		if err != nil {
			return err // Return error to rollback
		}
		// Take one unit of stock, guarded against a concurrent last unit
		if err := rewards.TakeStock(ctx, rw.ID); err != nil {
			if errors.Is(err, repository.ErrOutOfStock) {
				return newError(ErrConflict, "reward is out of stock")
			}
			return err // Return error to rollback
		}
		// Issue the voucher
		red := &domain.Redemption{
			UserID:      userID,           // Buyer
			RewardID:    rw.ID,            // Reward slug
			CoinsSpent:  rw.CoinCost,      // Price paid
			VoucherCode: newVoucherCode(), // QIC- code
			Status:      "issued",         // Voucher status
		}
		if err := rewards.CreateRedemption(ctx, red); err != nil {
			return err // Return error to rollback
		}
		if rw.Stock != domain.UnlimitedStock {
			rw.Stock-- // Mirror the decrement in the response
		}
		res = &RedemptionResult{Redemption: red, Reward: rw, Balance: balance}
		return nil // Commit transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,      // User ID
			"reward_id": rewardID,    // Reward ID
			"error":     err.Error(), // Error message
		}).Error("Redemption failed")
		return nil, err
	}
	// Log successful redemption
	logrus.WithFields(logrus.Fields{
		"user_id":       userID,                    // User ID
		"reward_id":     rewardID,                  // Reward ID
		"redemption_id": res.Redemption.ID,         // Redemption ID
		"coins":         res.Redemption.CoinsSpent, // Coins spent
		"balance":       res.Balance,               // Balance after the debit
		"type":          domain.TxRewardRedemption, // Transaction type
	}).Info("Reward redeemed")
	invalidateUsers(ctx, s.rdb, userID) // Balance and ledger changed
	s.analytics.Record(ctx, userID, EventRewardRedeemed, map[string]any{"reward_id": rewardID, "coins": res.Redemption.CoinsSpent})
	return res, nil
}

// Redemptions returns the user's redemptions, newest first
func (s *RewardService) Redemptions(ctx context.Context, userID string) ([]domain.Redemption, error) {
	rows, err := repository.NewRewardRepo(s.db).ListRedemptions(ctx, userID) // Newest first
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Redemption{} // Encode as [] rather than null
	}
	return rows, nil
}

// Create adds a reward to the catalog
func (s *RewardService) Create(ctx context.Context, in RewardInput) (*domain.Reward, error) {
	in.ID = strings.ToLower(strings.TrimSpace(in.ID))
	in.Title = strings.TrimSpace(in.Title)
	stock := domain.UnlimitedStock
	if in.Stock != nil {
		stock = *in.Stock
	}
	switch {
	case !slugPattern.MatchString(in.ID):
		return nil, invalid("id must be a lower-case slug of 2-64 characters")
	case in.Title == "":
		return nil, invalid("title is required")
	case in.CoinCost <= 0:
		return nil, invalid("coin_cost must be positive")
	case stock < domain.UnlimitedStock:
		return nil, invalid("stock must be -1 (unlimited) or more")
	}
	repo := repository.NewRewardRepo(s.db)
	existing, err := repo.FindByID(ctx, in.ID) // Slugs are unique
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(ErrConflict, "reward %s already exists", in.ID)
	}
	// Create reward
	rw := &domain.Reward{
		ID:          in.ID,                             // Slug
		Title:       in.Title,                          // Display title
		Description: strings.TrimSpace(in.Description), // Optional description
		Category:    strings.TrimSpace(in.Category),    // Optional category
		CoinCost:    in.CoinCost,                       // Price in coins
		Stock:       stock,                             // -1 for unlimited
		Active:      in.Active == nil || *in.Active,    // Listed by default
	}
	if err := repo.Create(ctx, rw); err != nil {
		// A concurrent create with the same slug
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "reward %s already exists", in.ID)
		}
		return nil, err
	}
	// Log reward creation
	logrus.WithFields(logrus.Fields{
		"reward_id": rw.ID,       // Reward slug
		"coin_cost": rw.CoinCost, // Price
		"stock":     rw.Stock,    // Initial stock
	}).Info("Reward created")
	return rw, nil
}

// newVoucherCode returns QIC- followed by 12 upper-case hex characters
func newVoucherCode() string {
	return VoucherPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
