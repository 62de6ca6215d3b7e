package service

import (
	"context" // Request scoped context
	"fmt"     // String formatting
	"strings" // String helpers
	"time"    // Timestamps and durations

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/game"       // Game rules
	"qic_life/internal/repository" // Data access
	"qic_life/internal/utils"      // Cache and JWT helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Pagination and list bounds
const (
	defaultPageSize    = 20
	maxPageSize        = 100
	defaultLeaderboard = 10
	maxLeaderboard     = 50
)

// ProfileService reads and updates the caller's own account
type ProfileService struct {
	db        *gorm.DB          // Database handle
	rdb       *redis.Client     // Cache, nil when disabled
	analytics *AnalyticsService // Server side events
	referrals *ReferralService  // Completes referrals on onboarding
	now       func() time.Time  // Clock
}

// Profile is the user as shown to themselves
type Profile struct {
	*domain.User
	Integrations []string           `json:"integrations"`
	Progress     game.LevelProgress `json:"progress"`
}

// ProfileUpdate holds the editable profile fields; nil fields are left alone
type ProfileUpdate struct {
	Name         *string  `json:"name"`
	Age          *int     `json:"age"`
	Occupation   *string  `json:"occupation"`
	Dependents   *int     `json:"dependents"`
	AnnualIncome *float64 `json:"annual_income"`
	City         *string  `json:"city"`
}

// OnboardingInput completes the profile and picks the integrations
type OnboardingInput struct {
	Integrations []string `json:"integrations"`
	Age          int      `json:"age"`
	Occupation   string   `json:"occupation"`
	Dependents   int      `json:"dependents"`
	AnnualIncome float64  `json:"annual_income"`
	City         string   `json:"city"`
}

// OnboardingResult reports what onboarding paid out
type OnboardingResult struct {
	Profile           *Profile `json:"profile"`
	CoinsAwarded      int64    `json:"coins_awarded"`
	XPAwarded         int64    `json:"xp_awarded"`
	ReferralCompleted bool     `json:"referral_completed"`
}

// Stats aggregates the user's progress
type Stats struct {
	Progress          game.LevelProgress `json:"progress"`
	LifeScore         int                `json:"lifescore"`
	Coins             int64              `json:"coins"`
	CoinsEarned       int64              `json:"coins_earned"`
	CoinsSpent        int64              `json:"coins_spent"`
	MissionsActive    int64              `json:"missions_active"`
	MissionsCompleted int64              `json:"missions_completed"`
	TotalCompletions  int64              `json:"total_completions"`
	Redemptions       int64              `json:"redemptions"`
	CurrentStreak     int                `json:"current_streak"`
	LongestStreak     int                `json:"longest_streak"`
}

// LedgerPage is one page of coin transactions
type LedgerPage struct {
	Transactions []domain.CoinTransaction `json:"transactions"`
	Page         int                      `json:"page"`
	PageSize     int                      `json:"page_size"`
	Total        int64                    `json:"total"`
	TotalPages   int                      `json:"total_pages"`
}

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Level         int    `json:"level"`
	XP            int64  `json:"xp"`
	LifeScore     int    `json:"lifescore"`
	CurrentStreak int    `json:"current_streak"`
}

func newProfile(u *domain.User) *Profile {
	return &Profile{User: u, Integrations: u.IntegrationList(), Progress: game.Progress(u.XP)}
}

// Get returns the profile, served from cache when possible
func (s *ProfileService) Get(ctx context.Context, userID string) (*Profile, error) {
	// Try cache first
	var cached Profile
	if found, err := utils.GetCache(ctx, s.rdb, profileKey(userID), &cached); err == nil && found && cached.User != nil {
		return &cached, nil
	}

	// Load from database
	user, err := repository.NewUserRepo(s.db).FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}

	// Cache for the next read
	p := newProfile(user)
	if err := utils.SetCache(ctx, s.rdb, profileKey(userID), p, profileCacheTTL); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to cache profile")
	}
	return p, nil
}

// Update writes the given profile fields
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileUpdate) (*Profile, error) {
	// Collect validated fields
	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > 120 {
			return nil, invalid("name must be 1-120 characters")
		}
		fields["name"] = name
	}
	if in.Age != nil {
		if err := validateAge(*in.Age); err != nil {
			return nil, err
		}
		fields["age"] = *in.Age
	}
	if in.Occupation != nil {
		fields["occupation"] = strings.TrimSpace(*in.Occupation)
	}
	if in.Dependents != nil {
		if err := validateDependents(*in.Dependents); err != nil {
			return nil, err
		}
		fields["dependents"] = *in.Dependents
	}
	if in.AnnualIncome != nil {
		if *in.AnnualIncome < 0 {
			return nil, invalid("annual_income cannot be negative")
		}
		fields["annual_income"] = *in.AnnualIncome
	}
	if in.City != nil {
		fields["city"] = strings.TrimSpace(*in.City)
	}
	if len(fields) == 0 {
		return nil, invalid("no profile fields to update")
	}

	// Write the fields
	users := repository.NewUserRepo(s.db)
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	if err := users.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	invalidateUsers(ctx, s.rdb, userID) // Profile cache is stale

	// Log update
	logrus.WithFields(logrus.Fields{
		"user_id": userID,      // User ID
		"fields":  len(fields), // Fields written
	}).Info("Profile updated")
	return s.Get(ctx, userID)
}

// Onboard completes onboarding once, paying the bonus and any pending referral
func (s *ProfileService) Onboard(ctx context.Context, userID string, in OnboardingInput) (*OnboardingResult, error) {
	// Validate input
	integrations, err := normalizeIntegrations(in.Integrations)
	if err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}
	if err := validateDependents(in.Dependents); err != nil {
		return nil, err
	}
	if in.AnnualIncome < 0 {
		return nil, invalid("annual_income cannot be negative")
	}

	var ref *domain.Referral
	// Atomic onboarding
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepo(tx)
		user, err := users.LockByID(ctx, userID) // Lock the user row
		if err != nil {
			return err // Return error to rollback
		}
		if user == nil {
			return notFound("user")
		}
		// Onboarding pays out only once
		if user.OnboardingCompleted {
			return newError(ErrConflict, "onboarding is already completed")
		}

		// Save the profile
		user.SetIntegrations(integrations) // Stored comma-joined
		err = users.UpdateFields(ctx, userID, map[string]any{
			"onboarding_completed": true,                             // Mark done
			"integrations":         user.Integrations,                // Chosen integrations
			"age":                  in.Age,                           // Age
			"occupation":           strings.TrimSpace(in.Occupation), // Occupation
			"dependents":           in.Dependents,                    // Dependents
			"annual_income":        in.AnnualIncome,                  // Annual income
			"city":                 strings.TrimSpace(in.City),       // City
		})
		if err != nil {
			return err // Return error to rollback
		}

		// Pay the onboarding bonus
		if _, err := repository.NewLedgerRepo(tx).Credit(ctx, userID, game.OnboardingBonusCoins, domain.TxOnboardingBonus, ""); err != nil {
			return err // Return error to rollback
		}
		if _, err := grantXP(ctx, tx, userID, game.OnboardingBonusXP); err != nil {
			return err // Return error to rollback
		}

		// Complete a pending referral
		ref, err = s.referrals.completeTx(ctx, tx, userID)
		return err // nil commits the transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"error":   err.Error(), // Error message
		}).Error("Onboarding failed")
		return nil, err
	}

	// Invalidate the user and the referrer
	ids := []string{userID}
	if ref != nil {
		ids = append(ids, ref.ReferrerID)
	}
	invalidateUsers(ctx, s.rdb, ids...)

	// Log successful onboarding
	logrus.WithFields(logrus.Fields{
		"user_id":            userID,                    // User ID
		"coins":              game.OnboardingBonusCoins, // Coins paid
		"xp":                 game.OnboardingBonusXP,    // XP granted
		"referral_completed": ref != nil,                // Referral paid out
	}).Info("Onboarding completed")
	s.analytics.Record(ctx, userID, EventOnboardingCompleted, map[string]any{"integrations": integrations})

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &OnboardingResult{
		Profile:           profile,
		CoinsAwarded:      game.OnboardingBonusCoins,
		XPAwarded:         game.OnboardingBonusXP,
		ReferralCompleted: ref != nil,
	}, nil
}

// Stats aggregates levels, missions, coins and streaks
func (s *ProfileService) Stats(ctx context.Context, userID string) (*Stats, error) {
	user, err := repository.NewUserRepo(s.db).FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	// Build stats from the user row
	st := &Stats{
		Progress:      game.Progress(user.XP),    // Level progress
		LifeScore:     user.LifeScore,            // LifeScore
		Coins:         user.Coins,                // Balance
		CurrentStreak: liveStreak(user, s.now()), // Lapsed streaks read as 0 before the nightly reset
		LongestStreak: user.LongestStreak,        // Best streak
	}

	// Aggregate the ledger and missions
	if st.CoinsEarned, st.CoinsSpent, err = repository.NewLedgerRepo(s.db).Totals(ctx, userID); err != nil {
		return nil, err
	}
	missions := repository.NewMissionRepo(s.db)
	if st.MissionsActive, err = missions.CountByStatus(ctx, userID, domain.MissionActive); err != nil {
		return nil, err
	}
	if st.MissionsCompleted, err = missions.CountByStatus(ctx, userID, domain.MissionCompleted); err != nil {
		return nil, err
	}
	if st.TotalCompletions, err = missions.TotalCompletions(ctx, userID); err != nil {
		return nil, err
	}
	if st.Redemptions, err = repository.NewRewardRepo(s.db).CountRedemptions(ctx, userID); err != nil {
		return nil, err
	}
	return st, nil
}

// Transactions returns one page of the user's ledger, served from cache when possible
func (s *ProfileService) Transactions(ctx context.Context, userID string, page, size int) (*LedgerPage, error) {
	p := pageOf(page, size)
	key := ledgerKey(userID, p.Number, p.Size) // One key per page

	// Try cache first
	var cached LedgerPage
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return &cached, nil
	}
	out, err := listLedger(ctx, s.db, repository.LedgerFilter{UserID: userID}, p) // Newest first
	if err != nil {
		return nil, err
	}
	if err := utils.SetCache(ctx, s.rdb, key, out, listCacheTTL); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to cache ledger page")
	}
	return out, nil
}

// Leaderboard ranks users by LifeScore then XP
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboard {
		limit = maxLeaderboard
	}
	// Try cache first
	key := fmt.Sprintf("%stop:%d", leaderboardPrefix, limit)
	var cached []LeaderboardEntry
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return cached, nil
	}
	users, err := repository.NewUserRepo(s.db).Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	// Rank in query order
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:          i + 1,
			UserID:        u.ID,
			Name:          u.Name,
			Level:         u.Level,
			XP:            u.XP,
			LifeScore:     u.LifeScore,
			CurrentStreak: liveStreak(&u, s.now()),
		})
	}
	if err := utils.SetCache(ctx, s.rdb, key, entries, leaderboardCacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to cache leaderboard")
	}
	return entries, nil
}

// liveStreak is the user's streak as of now
func liveStreak(u *domain.User, now time.Time) int {
	if game.StreakBroken(u.LastActiveOn, now) {
		return 0
	}
	return u.CurrentStreak
}

// ResetBrokenStreaks zeroes the streaks of users inactive since before yesterday
func (s *ProfileService) ResetBrokenStreaks(ctx context.Context) (int64, error) {
	cutoff := game.StreakCutoff(s.now()) // Active yesterday keeps the streak
	n, err := repository.NewUserRepo(s.db).ResetBrokenStreaks(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	// Cached profiles and leaderboards show the old streaks
	if n > 0 {
		if err := utils.DeleteCachePrefix(ctx, s.rdb, "profile:"); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate profile cache")
		}
		invalidateUsers(ctx, s.rdb)
	}
	return n, nil
}

func validateAge(age int) error {
	if age < 18 || age > 120 {
		return invalid("age must be between 18 and 120")
	}
	return nil
}

func validateDependents(n int) error {
	if n < 0 || n > 20 {
		return invalid("dependents must be between 0 and 20")
	}
	return nil
}

// normalizeIntegrations requires exactly the configured number of distinct allowed ids
func normalizeIntegrations(list []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(list))
	for _, raw := range list {
		id := strings.ToLower(strings.TrimSpace(raw))
		if !game.IsAllowedIntegration(id) {
			return nil, invalid("unknown integration %q", raw)
		}
		if seen[id] {
			return nil, invalid("integration %q is listed twice", id)
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) != game.RequiredIntegrations {
		return nil, invalid("exactly %d integrations are required", game.RequiredIntegrations)
	}
	return out, nil
}

// pageOf applies the default and maximum page sizes
func pageOf(page, size int) repository.Page {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return repository.Page{Number: page, Size: size}
}

func listLedger(ctx context.Context, db *gorm.DB, f repository.LedgerFilter, p repository.Page) (*LedgerPage, error) {
	txs, total, err := repository.NewLedgerRepo(db).List(ctx, f, p)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []domain.CoinTransaction{}
	}
	return &LedgerPage{
		Transactions: txs,
		Page:         p.Number,
		PageSize:     p.Size,
		Total:        total,
		TotalPages:   p.TotalPages(total),
	}, nil
}
