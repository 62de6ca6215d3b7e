package repository

import (
	"context" // Request scoped context
	"errors"  // Error inspection

	"qic_life/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// RewardRepo reads and writes rewards and redemptions
type RewardRepo struct {
	db *gorm.DB
}

// NewRewardRepo builds a RewardRepo over db or a transaction
func NewRewardRepo(db *gorm.DB) *RewardRepo {
	return &RewardRepo{db: db}
}

// ListActive returns the active rewards, cheapest first
func (r *RewardRepo) ListActive(ctx context.Context) ([]domain.Reward, error) {
	var rewards []domain.Reward
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("coin_cost asc").Order("id asc").Find(&rewards).Error
	return rewards, err
}

// FindByID returns the reward or nil when missing
func (r *RewardRepo) FindByID(ctx context.Context, id string) (*domain.Reward, error) {
	var rw domain.Reward
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rw).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rw, nil
}

// Create inserts a reward
func (r *RewardRepo) Create(ctx context.Context, rw *domain.Reward) error {
	return insertErr(r.db.WithContext(ctx).Create(rw).Error)
}

// TakeStock decrements a limited reward's stock; unlimited rewards are left alone
func (r *RewardRepo) TakeStock(ctx context.Context, id string) error {
	// Decrement only while stock is left
	res := r.db.WithContext(ctx).Model(&domain.Reward{}).
		Where("id = ? AND stock > 0", id).
		Update("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil // Took one unit
	}

	// No row matched, either unlimited or sold out
	var rw domain.Reward
	if err := r.db.WithContext(ctx).Select("stock").Where("id = ?", id).First(&rw).Error; err != nil {
		return err
	}
	if rw.Stock == domain.UnlimitedStock {
		return nil
	}
	return ErrOutOfStock
}

// CreateRedemption inserts a redemption
func (r *RewardRepo) CreateRedemption(ctx context.Context, red *domain.Redemption) error {
	return r.db.WithContext(ctx).Create(red).Error
}

// ListRedemptions returns the user's redemptions, newest first
func (r *RewardRepo) ListRedemptions(ctx context.Context, userID string) ([]domain.Redemption, error) {
	var rows []domain.Redemption
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error
	return rows, err
}

// CountRedemptions counts the user's redemptions
func (r *RewardRepo) CountRedemptions(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Redemption{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
