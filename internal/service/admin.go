package service

import (
	"context" // Request scoped context
	"fmt"     // String formatting
	"time"    // Timestamps and durations

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/repository" // Data access
	"qic_life/internal/utils"      // Cache and JWT helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

var ledgerTypes = []string{
	domain.TxSignupBonus,
	domain.TxOnboardingBonus,
	domain.TxMissionReward,
	domain.TxStreakBonus,
	domain.TxReferralBonus,
	domain.TxRewardRedemption,
	domain.TxAIRecommendation,
	domain.TxAIScenario,
	domain.TxAIRefund,
}

// AdminService backs the admin endpoints
type AdminService struct {
	db        *gorm.DB          // Database handle
	rdb       *redis.Client     // Cache, nil when disabled
	analytics *AnalyticsService // Global summaries
	missions  *MissionService   // Mission catalog writes
	rewards   *RewardService    // Reward catalog writes
}

// UserPage is one page of users
type UserPage struct {
	Users      []domain.User `json:"users"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// LedgerQuery filters the global ledger
type LedgerQuery struct {
	UserID   string
	Type     string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Users returns one page of users, served from cache when possible
func (s *AdminService) Users(ctx context.Context, page, size int) (*UserPage, error) {
	p := pageOf(page, size)
	key := fmt.Sprintf("%susers:page:%d:size:%d", adminPrefix, p.Number, p.Size)

	// Try cache first
	var cached UserPage
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return &cached, nil
	}
	users, total, err := repository.NewUserRepo(s.db).List(ctx, p) // Oldest first
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	out := &UserPage{Users: users, Page: p.Number, PageSize: p.Size, Total: total, TotalPages: p.TotalPages(total)}
	if err := utils.SetCache(ctx, s.rdb, key, out, listCacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to cache admin users page")
	}
	return out, nil
}

// Transactions returns one page of the filtered ledger, served from cache when possible
func (s *AdminService) Transactions(ctx context.Context, q LedgerQuery) (*LedgerPage, error) {
	// Validate filters
	if q.Type != "" && !oneOf(q.Type, ledgerTypes...) {
		return nil, invalid("unknown transaction type %q", q.Type)
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, invalid("from must not be after to")
	}
	// Every filter is part of the cache key
	p := pageOf(q.Page, q.PageSize)
	key := fmt.Sprintf("%stransactions:user:%s:type:%s:from:%s:to:%s:page:%d:size:%d",
		adminPrefix, q.UserID, q.Type, formatTime(q.From), formatTime(q.To), p.Number, p.Size)
	var cached LedgerPage
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return &cached, nil
	}
	out, err := listLedger(ctx, s.db, repository.LedgerFilter{UserID: q.UserID, Type: q.Type, From: q.From, To: q.To}, p)
	if err != nil {
		return nil, err
	}
	if err := utils.SetCache(ctx, s.rdb, key, out, listCacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to cache admin ledger page")
	}
	return out, nil
}

// Analytics counts every user's events over the last days
func (s *AdminService) Analytics(ctx context.Context, days int) (*Summary, error) {
	return s.analytics.Global(ctx, days)
}

// CreateMission adds a mission
func (s *AdminService) CreateMission(ctx context.Context, in MissionInput) (*domain.Mission, error) {
	return s.missions.Create(ctx, in)
}

// CreateReward adds a reward
func (s *AdminService) CreateReward(ctx context.Context, in RewardInput) (*domain.Reward, error) {
	return s.rewards.Create(ctx, in)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
