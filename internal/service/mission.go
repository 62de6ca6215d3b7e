package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"regexp"  // Slug validation
	"strings" // String normalization
	"time"    // Timestamps

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/game"       // Level, streak and LifeScore rules
	"qic_life/internal/repository" // Data access

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// MissionService drives the mission lifecycle and pays completion rewards
type MissionService struct {
	db        *gorm.DB          // Database handle
	rdb       *redis.Client     // Cache, nil when disabled
	analytics *AnalyticsService // Server side events
	now       func() time.Time  // Clock
}

// MissionView is a mission with the caller's status on it
type MissionView struct {
	domain.Mission
	Status      string     `json:"status"`                 // Status as seen by the caller
	Progress    int        `json:"progress"`               // Progress 0-100
	Completions int        `json:"completions"`            // Times completed
	StartedAt   *time.Time `json:"started_at,omitempty"`   // Start of the current attempt
	CompletedAt *time.Time `json:"completed_at,omitempty"` // Last completion
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`   // Deadline of an active attempt
}

// MissionFilter narrows the mission list
type MissionFilter struct {
	Status   string // Computed status
	Category string // Mission category
}

// CompletionResult reports what a completion paid and the new totals
type CompletionResult struct {
	Mission        *MissionView `json:"mission"`
	XPEarned       int64        `json:"xp_earned"`
	CoinsEarned    int64        `json:"coins_earned"`
	LifeScoreDelta int          `json:"lifescore_delta"`
	StreakBonus    int64        `json:"streak_bonus"`
	LeveledUp      bool         `json:"leveled_up"`
	Level          int          `json:"level"`
	XP             int64        `json:"xp"`
	Coins          int64        `json:"coins"`
	LifeScore      int          `json:"lifescore"`
	CurrentStreak  int          `json:"current_streak"`
}

// MissionInput is an admin's new mission
type MissionInput struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Difficulty      string `json:"difficulty"`
	XPReward        int64  `json:"xp_reward"`
	CoinReward      int64  `json:"coin_reward"`
	LifeScoreReward int    `json:"lifescore_reward"`
	RequiredLevel   int    `json:"required_level"`
	DurationDays    int    `json:"duration_days"`
	Repeatable      bool   `json:"repeatable"`
	Active          *bool  `json:"active"`
}

// statusFor computes what the user sees for a mission
func statusFor(user *domain.User, m *domain.Mission, um *domain.UserMission) string {
	// A persisted attempt wins over the level gate
	if um != nil {
		if um.Status == domain.MissionCompleted && m.Repeatable {
			return domain.MissionAvailable // Repeatable missions reopen after completion
		}
		return um.Status
	}
	// Gate by level
	if user.Level < m.RequiredLevel {
		return domain.MissionLocked
	}
	return domain.MissionAvailable
}

func newMissionView(user *domain.User, m *domain.Mission, um *domain.UserMission) *MissionView {
	v := &MissionView{Mission: *m, Status: statusFor(user, m, um)}
	if um != nil {
		v.Progress = um.Progress       // Current progress
		v.Completions = um.Completions // Completion count
		v.StartedAt = um.StartedAt     // Attempt start
		v.CompletedAt = um.CompletedAt // Last completion
		// Active attempts expire after the mission duration
		if um.Status == domain.MissionActive && um.StartedAt != nil && m.DurationDays > 0 {
			expires := um.StartedAt.AddDate(0, 0, m.DurationDays)
			v.ExpiresAt = &expires
		}
	}
	return v
}

func (s *MissionService) loadUser(ctx context.Context, db *gorm.DB, userID string, lock bool) (*domain.User, error) {
	users := repository.NewUserRepo(db)
	var (
		user *domain.User
		err  error
	)
	if lock {
		user, err = users.LockByID(ctx, userID) // Row lock until the transaction ends
	} else {
		user, err = users.FindByID(ctx, userID) // Plain read
	}
	if err != nil {
		return nil, err // Database error
	}
	if user == nil {
		return nil, notFound("user") // Token for a deleted user
	}
	return user, nil
}

// loadMission returns an active mission; inactive ones are treated as missing
func loadMission(ctx context.Context, db *gorm.DB, missionID string) (*domain.Mission, error) {
	m, err := repository.NewMissionRepo(db).FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Active {
		return nil, notFound("mission")
	}
	return m, nil
}

// List returns the active missions with the caller's status
func (s *MissionService) List(ctx context.Context, userID string, f MissionFilter) ([]MissionView, error) {
	// Validate filters
	if f.Status != "" && !oneOf(f.Status, domain.MissionAvailable, domain.MissionActive, domain.MissionCompleted, domain.MissionFailed, domain.MissionLocked) {
		return nil, invalid("unknown mission status %q", f.Status)
	}
	if f.Category != "" && !oneOf(f.Category, domain.MissionCategories...) {
		return nil, invalid("unknown mission category %q", f.Category)
	}
	user, err := s.loadUser(ctx, s.db, userID, false) // Level decides locked missions
	if err != nil {
		return nil, err
	}
	repo := repository.NewMissionRepo(s.db)
	missions, err := repo.ListActive(ctx, f.Category) // Active catalog
	if err != nil {
		return nil, err
	}
	progress, err := repo.UserMissions(ctx, userID) // Caller's attempts keyed by mission
	if err != nil {
		return nil, err
	}
	views := make([]MissionView, 0, len(missions))
	for i := range missions {
		var um *domain.UserMission
		if row, ok := progress[missions[i].ID]; ok {
			um = &row
		}
		v := newMissionView(user, &missions[i], um)
		// Status filter applies to the computed status
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		views = append(views, *v)
	}
	return views, nil
}

// Get returns one mission with the caller's status
func (s *MissionService) Get(ctx context.Context, userID, missionID string) (*MissionView, error) {
	user, err := s.loadUser(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	m, err := loadMission(ctx, s.db, missionID)
	if err != nil {
		return nil, err
	}
	um, err := repository.NewMissionRepo(s.db).FindUserMission(ctx, userID, missionID) // May be nil
	if err != nil {
		return nil, err
	}
	return newMissionView(user, m, um), nil
}

// Active returns the caller's active missions
func (s *MissionService) Active(ctx context.Context, userID string) ([]MissionView, error) {
	user, err := s.loadUser(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	repo := repository.NewMissionRepo(s.db)
	rows, err := repo.ListByStatus(ctx, userID, domain.MissionActive)
	if err != nil {
		return nil, err
	}
	views := make([]MissionView, 0, len(rows))
	for i := range rows {
		m, err := repo.FindByID(ctx, rows[i].MissionID) // Join with the catalog row
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue // Mission removed from the catalog
		}
		views = append(views, *newMissionView(user, m, &rows[i]))
	}
	return views, nil
}

// Start moves an available, failed or repeatable completed mission to active
func (s *MissionService) Start(ctx context.Context, userID, missionID string) (*MissionView, error) {
	var view *MissionView
	// Atomic start
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadUser(ctx, tx, userID, true) // Lock the user row
		if err != nil {
			return err // Return error to rollback
		}
		m, err := loadMission(ctx, tx, missionID)
		if err != nil {
			return err // Return error to rollback
		}
		repo := repository.NewMissionRepo(tx)
		um, err := repo.FindUserMission(ctx, userID, missionID) // Previous attempt, if any
		if err != nil {
			return err // Return error to rollback
		}
		// Only available and failed missions can start
		switch statusFor(user, m, um) {
		case domain.MissionLocked:
			return &LockedError{MissionID: m.ID, RequiredLevel: m.RequiredLevel}
		case domain.MissionActive:
			return newError(ErrConflict, "mission is already active")
		case domain.MissionCompleted:
			return newError(ErrConflict, "mission is already completed")
		}
		now := s.now().UTC() // Attempt start
		if um == nil {
			// First attempt
			um = &domain.UserMission{
				UserID:    userID,               // Owner
				MissionID: missionID,            // Mission slug
				Status:    domain.MissionActive, // Starts active
				StartedAt: &now,                 // Start time
			}
			if err := repo.SaveUserMission(ctx, um); err != nil {
				return err // Return error to rollback
			}
		} else {
			// Restart only if nobody changed the attempt since we read it
			ok, err := repo.TransitionUserMission(ctx, um.ID, um.Status, map[string]any{
				"status":     domain.MissionActive, // Back to active
				"progress":   0,                    // Progress resets
				"started_at": now,                  // New attempt start
			})
			if err != nil {
				return err // Return error to rollback
			}
			if !ok {
				return newError(ErrConflict, "mission changed, try again") // Lost a concurrent update
			}
			um.Status = domain.MissionActive
			um.Progress = 0
			um.StartedAt = &now
		}
		view = newMissionView(user, m, um)
		return nil // Commit transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,      // User ID
			"mission_id": missionID,   // Mission ID
			"error":      err.Error(), // Error message
		}).Error("Mission start failed")
		return nil, err
	}
	// Log successful start
	logrus.WithFields(logrus.Fields{"user_id": userID, "mission_id": missionID}).Info("Mission started")
	s.analytics.Record(ctx, userID, EventMissionStarted, map[string]any{"mission_id": missionID})
	return view, nil
}

// UpdateProgress records progress on an active mission; 100 does not complete it
func (s *MissionService) UpdateProgress(ctx context.Context, userID, missionID string, progress int) (*MissionView, error) {
	// Validate progress
	if progress < 0 || progress > 100 {
		return nil, invalid("progress must be between 0 and 100")
	}
	user, err := s.loadUser(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	m, err := loadMission(ctx, s.db, missionID)
	if err != nil {
		return nil, err
	}
	repo := repository.NewMissionRepo(s.db)
	um, err := repo.FindUserMission(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}
	// Progress only moves on active attempts
	if um == nil || um.Status != domain.MissionActive {
		return nil, invalid("mission is not active")
	}
	ok, err := repo.TransitionUserMission(ctx, um.ID, domain.MissionActive, map[string]any{"progress": progress}) // Guarded on status
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("mission is not active") // Completed or abandoned meanwhile
	}
	um.Progress = progress
	return newMissionView(user, m, um), nil
}

// Complete finishes an active mission and pays XP, coins, LifeScore and any streak bonus
func (s *MissionService) Complete(ctx context.Context, userID, missionID string) (*CompletionResult, error) {
	var res *CompletionResult
	// Atomic completion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.loadUser(ctx, tx, userID, true) // Lock the user row
		if err != nil {
			return err // Return error to rollback
		}
		m, err := loadMission(ctx, tx, missionID)
		if err != nil {
			return err // Return error to rollback
		}
		repo := repository.NewMissionRepo(tx)
		um, err := repo.FindUserMission(ctx, userID, missionID)
		if err != nil {
			return err // Return error to rollback
		}
		// Check the attempt is active
		if um == nil || um.Status != domain.MissionActive {
			return invalid("mission is not active")
		}
		now := s.now().UTC() // Completion time
		// Mark completed, guarded on the active status
		ok, err := repo.TransitionUserMission(ctx, um.ID, domain.MissionActive, map[string]any{
			"status":       domain.MissionCompleted,         // Completed
			"progress":     100,                             // Full progress
			"completed_at": now,                             // Completion time
			"completions":  gorm.Expr("completions + ?", 1), // Count the completion
		})
		if err != nil {
			return err // Return error to rollback
		}
		if !ok {
			return invalid("mission is not active") // Completed concurrently
		}
		um.Status = domain.MissionCompleted
		um.Progress = 100
		um.CompletedAt = &now
		um.Completions++

		// Pay coins
		ledger := repository.NewLedgerRepo(tx)
		if m.CoinReward > 0 {
			if _, err := ledger.Credit(ctx, userID, m.CoinReward, domain.TxMissionReward, m.ID); err != nil {
				return err // Return error to rollback
			}
		}
		// Pay XP and recompute the level
		grant, err := grantXP(ctx, tx, userID, m.XPReward)
		if err != nil {
			return err // Return error to rollback
		}

		// LifeScore and streak
		lifeScore := game.ApplyLifeScore(user.LifeScore, m.LifeScoreReward)   // Clamped to 0-100
		streak := game.NextStreak(user.LastActiveOn, now, user.CurrentStreak) // Same day keeps, next day extends
		longest := user.LongestStreak
		if streak > longest {
			longest = streak
		}
		today := game.Day(now) // Stored as a day
		err = repository.NewUserRepo(tx).UpdateFields(ctx, userID, map[string]any{
			"lifescore":      lifeScore, // New LifeScore
			"current_streak": streak,    // New streak
			"longest_streak": longest,   // Best streak
			"last_active_on": today,     // Last active day
		})
		if err != nil {
			return err // Return error to rollback
		}
		// Streak bonus on milestone days
		bonus := game.StreakBonus(user.CurrentStreak, streak)
		if bonus > 0 {
			if _, err := ledger.Credit(ctx, userID, bonus, domain.TxStreakBonus, m.ID); err != nil {
				return err // Return error to rollback
			}
		}

		// Read back the totals
		after, err := s.loadUser(ctx, tx, userID, false)
		if err != nil {
			return err // Return error to rollback
		}
		res = &CompletionResult{
			Mission:        newMissionView(after, m, um), // Mission with its new status
			XPEarned:       m.XPReward,                   // XP paid
			CoinsEarned:    m.CoinReward,                 // Coins paid
			LifeScoreDelta: lifeScore - user.LifeScore,   // Effective change after clamping
			StreakBonus:    bonus,                        // Milestone bonus
			LeveledUp:      grant.LeveledUp,              // Level changed
			Level:          grant.Level,                  // New level
			XP:             grant.XP,                     // New XP total
			Coins:          after.Coins,                  // New balance
			LifeScore:      lifeScore,                    // New LifeScore
			CurrentStreak:  streak,                       // New streak
		}
		return nil // Commit transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,      // User ID
			"mission_id": missionID,   // Mission ID
			"error":      err.Error(), // Error message
		}).Error("Mission completion failed")
		return nil, err
	}
	// Log successful completion
	logrus.WithFields(logrus.Fields{
		"user_id":      userID,          // User ID
		"mission_id":   missionID,       // Mission ID
		"xp":           res.XPEarned,    // XP paid
		"coins":        res.CoinsEarned, // Coins paid
		"streak_bonus": res.StreakBonus, // Milestone bonus
		"level":        res.Level,       // New level
	}).Info("Mission completed")
	invalidateUsers(ctx, s.rdb, userID) // Profile, ledger and leaderboard changed
	s.analytics.Record(ctx, userID, EventMissionCompleted, map[string]any{
		"mission_id": missionID,
		"xp":         res.XPEarned,
		"coins":      res.CoinsEarned,
		"leveled_up": res.LeveledUp,
	})
	return res, nil
}

// Abandon fails an active mission
func (s *MissionService) Abandon(ctx context.Context, userID, missionID string) (*MissionView, error) {
	user, err := s.loadUser(ctx, s.db, userID, false)
	if err != nil {
		return nil, err
	}
	m, err := loadMission(ctx, s.db, missionID)
	if err != nil {
		return nil, err
	}
	repo := repository.NewMissionRepo(s.db)
	um, err := repo.FindUserMission(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}
	// Only active attempts can be abandoned
	if um == nil || um.Status != domain.MissionActive {
		return nil, invalid("mission is not active")
	}
	ok, err := repo.TransitionUserMission(ctx, um.ID, domain.MissionActive, map[string]any{"status": domain.MissionFailed})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("mission is not active") // Completed or abandoned meanwhile
	}
	um.Status = domain.MissionFailed
	logrus.WithFields(logrus.Fields{"user_id": userID, "mission_id": missionID}).Info("Mission abandoned")
	return newMissionView(user, m, um), nil
}

// Create adds a mission to the catalog
func (s *MissionService) Create(ctx context.Context, in MissionInput) (*domain.Mission, error) {
	in.ID = strings.ToLower(strings.TrimSpace(in.ID)) // Slugs are lower-case
	in.Title = strings.TrimSpace(in.Title)
	// Validate input
	switch {
	case !slugPattern.MatchString(in.ID):
		return nil, invalid("id must be a lower-case slug of 2-64 characters")
	case in.Title == "":
		return nil, invalid("title is required")
	case !oneOf(in.Category, domain.MissionCategories...):
		return nil, invalid("category must be one of %s", strings.Join(domain.MissionCategories, ", "))
	case !oneOf(in.Difficulty, domain.MissionDifficulties...):
		return nil, invalid("difficulty must be one of %s", strings.Join(domain.MissionDifficulties, ", "))
	case in.XPReward < 0 || in.CoinReward < 0:
		return nil, invalid("rewards cannot be negative")
	case in.LifeScoreReward < -game.MaxLifeScore || in.LifeScoreReward > game.MaxLifeScore:
		return nil, invalid("lifescore_reward must be between -%d and %d", game.MaxLifeScore, game.MaxLifeScore)
	case in.RequiredLevel < 1:
		return nil, invalid("required_level must be at least 1")
	case in.DurationDays < 1:
		return nil, invalid("duration_days must be at least 1")
	}
	repo := repository.NewMissionRepo(s.db)
	existing, err := repo.FindByID(ctx, in.ID) // Slugs are unique
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(ErrConflict, "mission %s already exists", in.ID)
	}
	m := &domain.Mission{
		ID:              in.ID,                             // Slug
		Title:           in.Title,                          // Title
		Description:     strings.TrimSpace(in.Description), // Description
		Category:        in.Category,                       // Category
		Difficulty:      in.Difficulty,                     // Difficulty
		XPReward:        in.XPReward,                       // XP paid on completion
		CoinReward:      in.CoinReward,                     // Coins paid on completion
		LifeScoreReward: in.LifeScoreReward,                // LifeScore change on completion
		RequiredLevel:   in.RequiredLevel,                  // Level gate
		DurationDays:    in.DurationDays,                   // Days before an attempt expires
		Repeatable:      in.Repeatable,                     // Reopens after completion
		Active:          in.Active == nil || *in.Active,    // Listed unless disabled
	}
	if err := repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "mission %s already exists", in.ID) // Created concurrently
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"mission_id": m.ID, "category": m.Category}).Info("Mission created")
	return m, nil
}

// ExpireOverdue fails every active mission past its duration
func (s *MissionService) ExpireOverdue(ctx context.Context) (int64, error) {
	return repository.NewMissionRepo(s.db).ExpireOverdue(ctx, s.now().UTC())
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
