package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"strings" // String helpers
	"time"    // Timestamps and durations

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/game"       // Game rules
	"qic_life/internal/repository" // Data access

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// ReferralService links users through referral codes and pays the bonuses
type ReferralService struct {
	db        *gorm.DB          // Database handle
	rdb       *redis.Client     // Cache, nil when disabled
	analytics *AnalyticsService // Server side events
	now       func() time.Time  // Clock
}

// ReferralStats summarizes a user's referrals
type ReferralStats struct {
	Total       int   `json:"total"`        // All referrals made
	Completed   int   `json:"completed"`    // Referred user onboarded
	Pending     int   `json:"pending"`      // Waiting for onboarding
	CoinsEarned int64 `json:"coins_earned"` // Referrer bonuses paid
}

// ReferralOverview is what a user sees about their own referrals
type ReferralOverview struct {
	Code      string            `json:"code"`
	Referrals []domain.Referral `json:"referrals"`
	Stats     ReferralStats     `json:"stats"`
}

// Apply records that userID was referred by the owner of code.
// The referral completes at once when the user has already onboarded.
func (s *ReferralService) Apply(ctx context.Context, userID, code string) (*domain.Referral, error) {
	var ref *domain.Referral
	// Atomic apply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := repository.NewUserRepo(tx).LockByID(ctx, userID) // Lock the referred user
		if err != nil {
			return err // Return error to rollback
		}
		if user == nil {
			return notFound("user")
		}
		if ref, err = s.applyTx(ctx, tx, user, code); err != nil {
			return err // Return error to rollback
		}
		// Onboarded users complete the referral straight away
		if user.OnboardingCompleted {
			completed, err := s.completeTx(ctx, tx, user.ID)
			if err != nil {
				return err // Return error to rollback
			}
			if completed != nil {
				ref = completed
			}
		}
		return nil // Commit transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"code":    code,        // Code entered
			"error":   err.Error(), // Error message
		}).Error("Referral apply failed")
		return nil, err
	}

	// Log successful apply
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,         // Referred user
		"referrer_id": ref.ReferrerID, // Code owner
		"status":      ref.Status,     // pending or completed
	}).Info("Referral applied")
	invalidateUsers(ctx, s.rdb, ref.ReferrerID, userID) // Both sides may have new coins
	s.analytics.Record(ctx, userID, EventReferralApplied, map[string]any{"referrer_id": ref.ReferrerID, "status": ref.Status})
	return ref, nil
}

// applyTx creates a pending referral for user. Run it inside a transaction.
func (s *ReferralService) applyTx(ctx context.Context, tx *gorm.DB, user *domain.User, code string) (*domain.Referral, error) {
	// Codes are matched case insensitively
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalid("referral code is required")
	}

	// Find the code owner
	referrer, err := repository.NewUserRepo(tx).FindByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, notFound("referral code")
	}
	if referrer.ID == user.ID {
		return nil, invalid("you cannot use your own referral code") // No self referral
	}

	// A user can be referred only once
	referrals := repository.NewReferralRepo(tx)
	existing, err := referrals.FindByReferred(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(ErrConflict, "a referral code has already been applied")
	}
	// Create pending referral
	ref := &domain.Referral{
		ReferrerID: referrer.ID,            // Code owner
		ReferredID: user.ID,                // New user
		CodeUsed:   code,                   // Normalized code
		Status:     domain.ReferralPending, // Completes on onboarding
		CreatedAt:  s.now().UTC(),          // Creation time
	}
	if err := referrals.Create(ctx, ref); err != nil {
		// Lost a race with a concurrent apply
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "a referral code has already been applied")
		}
		return nil, err
	}
	return ref, nil
}

// completeTx pays both sides of a pending referral of referredID.
// It returns nil when there is nothing to complete. Run it inside a transaction.
func (s *ReferralService) completeTx(ctx context.Context, tx *gorm.DB, referredID string) (*domain.Referral, error) {
	// Find the pending referral, if any
	referrals := repository.NewReferralRepo(tx)
	ref, err := referrals.FindByReferred(ctx, referredID)
	if err != nil || ref == nil || ref.Status != domain.ReferralPending {
		return nil, err
	}

	// Flip pending to completed, only one caller wins
	now := s.now().UTC()
	ref.CompletedAt = &now
	ok, err := referrals.Complete(ctx, ref)
	if err != nil || !ok {
		return nil, err
	}
	ref.Status = domain.ReferralCompleted
	ref.BonusAwarded = true

	// Pay the referrer coins and XP
	ledger := repository.NewLedgerRepo(tx)
	if _, err := ledger.Credit(ctx, ref.ReferrerID, game.ReferrerBonusCoins, domain.TxReferralBonus, ref.ID); err != nil {
		return nil, err
	}
	if _, err := grantXP(ctx, tx, ref.ReferrerID, game.ReferrerBonusXP); err != nil {
		return nil, err
	}

	// Pay the referred user
	if _, err := ledger.Credit(ctx, ref.ReferredID, game.ReferredBonusCoins, domain.TxReferralBonus, ref.ID); err != nil {
		return nil, err
	}

	// Log completion
	logrus.WithFields(logrus.Fields{
		"referral_id": ref.ID,         // Referral ID
		"referrer_id": ref.ReferrerID, // Code owner
		"referred_id": ref.ReferredID, // Onboarded user
	}).Info("Referral completed")
	return ref, nil
}

// Overview returns the user's code, referrals and totals
func (s *ReferralService) Overview(ctx context.Context, userID string) (*ReferralOverview, error) {
	user, err := repository.NewUserRepo(s.db).FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	refs, err := repository.NewReferralRepo(s.db).ListByReferrer(ctx, userID) // Newest first
	if err != nil {
		return nil, err
	}
	out := &ReferralOverview{Code: user.ReferralCode, Referrals: refs}
	if out.Referrals == nil {
		out.Referrals = []domain.Referral{}
	}
	// Tally statuses
	for _, r := range refs {
		out.Stats.Total++
		if r.Status == domain.ReferralCompleted {
			out.Stats.Completed++
			if r.BonusAwarded {
				out.Stats.CoinsEarned += game.ReferrerBonusCoins
			}
		} else {
			out.Stats.Pending++
		}
	}
	return out, nil
}
