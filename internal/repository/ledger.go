package repository

import (
	"context" // Request scoped context
	"time"    // Timestamps and durations

	"qic_life/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// LedgerRepo moves coins and records every movement
type LedgerRepo struct {
	db *gorm.DB
}

// NewLedgerRepo builds a LedgerRepo over db or a transaction
func NewLedgerRepo(db *gorm.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Credit adds coins to a user and writes the ledger row. Run it inside a transaction.
func (r *LedgerRepo) Credit(ctx context.Context, userID string, amount int64, txType, reference string) (int64, error) {
	// Add coins in SQL so concurrent credits never overwrite each other
	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.User{}).Where("id = ?", userID).
		Update("coins", gorm.Expr("coins + ?", amount)).Error; err != nil {
		return 0, err
	}
	return r.record(ctx, userID, amount, txType, reference) // Positive ledger entry
}

// Debit removes coins only when the balance covers them. Run it inside a transaction.
func (r *LedgerRepo) Debit(ctx context.Context, userID string, amount int64, txType, reference string) (int64, error) {
	// Conditional update, the balance can never go negative
	db := r.db.WithContext(ctx)
	res := db.Model(&domain.User{}).Where("id = ? AND coins >= ?", userID, amount).
		Update("coins", gorm.Expr("coins - ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficientCoins // Balance too low or user missing
	}
	return r.record(ctx, userID, -amount, txType, reference) // Negative ledger entry
}

// record writes the ledger row with the balance after the movement
func (r *LedgerRepo) record(ctx context.Context, userID string, amount int64, txType, reference string) (int64, error) {
	// Read back the new balance
	var balance int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).
		Select("coins").Scan(&balance).Error; err != nil {
		return 0, err
	}
	// Create transaction record
	t := domain.CoinTransaction{
		UserID:       userID,    // Owner
		Amount:       amount,    // Signed amount
		BalanceAfter: balance,   // Balance after this entry
		Type:         txType,    // Transaction type
		Reference:    reference, // Mission, reward or referral ID
	}
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		return 0, err
	}
	return balance, nil
}

// LedgerFilter narrows ledger listings
type LedgerFilter struct {
	UserID string     // Empty for every user
	Type   string     // Empty for every type
	From   *time.Time // Inclusive lower bound
	To     *time.Time // Inclusive upper bound
}

// List returns one page of ledger rows, newest first, and the total count
func (r *LedgerRepo) List(ctx context.Context, f LedgerFilter, page Page) ([]domain.CoinTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.CoinTransaction{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}
	// Count before paging
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.CoinTransaction
	err := query.Order("created_at desc").Offset(page.Offset()).Limit(page.Size).Find(&txs).Error
	return txs, total, err
}

// Totals returns the coins a user has earned and spent
func (r *LedgerRepo) Totals(ctx context.Context, userID string) (earned, spent int64, err error) {
	var row struct {
		Earned int64
		Spent  int64
	}
	err = r.db.WithContext(ctx).Model(&domain.CoinTransaction{}).
		Select("COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS earned, "+
			"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS spent").
		Where("user_id = ?", userID).Scan(&row).Error
	return row.Earned, row.Spent, err
}
