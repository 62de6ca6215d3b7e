package repository

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"time"    // Timestamps and durations

	"qic_life/internal/domain" // Domain models

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Locking clauses
)

// UserRepo reads and writes users
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo builds a UserRepo over db or a transaction
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return insertErr(r.db.WithContext(ctx).Create(u).Error)
}

// FindByID returns the user or nil when missing
func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// LockByID returns the user with a row lock held until the transaction ends
func (r *UserRepo) LockByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// FindByEmail returns the user or nil when missing
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

// FindByReferralCode returns the owner of a referral code or nil
func (r *UserRepo) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.first(r.db.WithContext(ctx).Where("referral_code = ?", code))
}

// first runs q and maps a missing row to nil
func (r *UserRepo) first(q *gorm.DB) (*domain.User, error) {
	var u domain.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Not found is not an error here
		}
		return nil, err
	}
	return &u, nil
}

// UpdateFields writes the given columns
func (r *UserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
}

// List returns one page of users ordered by creation and the total count
func (r *UserRepo) List(ctx context.Context, page Page) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	err := r.db.WithContext(ctx).Order("created_at asc").Offset(page.Offset()).Limit(page.Size).Find(&users).Error
	return users, total, err
}

// Leaderboard returns the top users by LifeScore, then XP
func (r *UserRepo) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("role = ?", domain.RoleUser). // Admins are not ranked
		Order("lifescore desc").Order("xp desc").Order("created_at asc").
		Limit(limit).Find(&users).Error
	return users, err
}

// ResetBrokenStreaks zeroes streaks whose last active day is before cutoff
func (r *UserRepo) ResetBrokenStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("current_streak > 0 AND (last_active_on IS NULL OR last_active_on < ?)", cutoff).
		Update("current_streak", 0)
	return res.RowsAffected, res.Error
}
