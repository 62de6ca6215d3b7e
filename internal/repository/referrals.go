package repository

import (
	"context" // Request scoped context
	"errors"  // Error inspection

	"qic_life/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// ReferralRepo reads and writes referrals
type ReferralRepo struct {
	db *gorm.DB
}

// NewReferralRepo builds a ReferralRepo over db or a transaction
func NewReferralRepo(db *gorm.DB) *ReferralRepo {
	return &ReferralRepo{db: db}
}

// Create inserts a referral
func (r *ReferralRepo) Create(ctx context.Context, ref *domain.Referral) error {
	return insertErr(r.db.WithContext(ctx).Create(ref).Error)
}

// FindByReferred returns the referral of a referred user or nil
func (r *ReferralRepo) FindByReferred(ctx context.Context, referredID string) (*domain.Referral, error) {
	var ref domain.Referral
	if err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// ListByReferrer returns the referrals made by a user, newest first
func (r *ReferralRepo) ListByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	var rows []domain.Referral
	err := r.db.WithContext(ctx).Where("referrer_id = ?", referrerID).Order("created_at desc").Find(&rows).Error
	return rows, err
}

// Complete marks a pending referral completed with its bonus paid.
// It reports false when the referral was not pending anymore.
func (r *ReferralRepo) Complete(ctx context.Context, ref *domain.Referral) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Referral{}).
		Where("id = ? AND status = ?", ref.ID, domain.ReferralPending).
		Updates(map[string]any{
			"status":        domain.ReferralCompleted, // Completed
			"bonus_awarded": true,                     // Both bonuses paid
			"completed_at":  ref.CompletedAt,          // Completion time
		})
	return res.RowsAffected > 0, res.Error
}
