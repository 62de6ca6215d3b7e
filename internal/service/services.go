package service

import (
	"context" // Request scoped context
	"time"    // Timestamps and durations

	"qic_life/internal/ai"         // AI layer
	"qic_life/internal/catalog"    // Plan catalog
	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/events"     // Analytics publishing
	"qic_life/internal/game"       // Game rules
	"qic_life/internal/metrics"    // Prometheus collectors
	"qic_life/internal/repository" // Data access

	"github.com/redis/go-redis/v9" // Redis client
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// Deps are the collaborators shared by every service
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client // nil disables caching
	Catalog   *catalog.Catalog
	AI        ai.Provider
	Publisher events.Publisher // nil drops analytics events
	JWTSecret string
	JWTTTL    time.Duration
	Metrics   *metrics.Metrics // nil disables instrumentation
	Now       func() time.Time // nil means time.Now
}

// Services groups the business services used by the API and the jobs
type Services struct {
	Auth      *AuthService
	Profile   *ProfileService
	Missions  *MissionService
	Rewards   *RewardService
	Referrals *ReferralService
	Analytics *AnalyticsService
	AI        *AIService
	Admin     *AdminService
}

// New wires every service
func New(d Deps) *Services {
	// Defaults for optional collaborators
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Catalog == nil {
		d.Catalog = catalog.MustDefault()
	}
	// Services that others depend on
	analytics := &AnalyticsService{db: d.DB, publisher: d.Publisher, now: d.Now}
	referrals := &ReferralService{db: d.DB, rdb: d.Redis, analytics: analytics, now: d.Now}
	missions := &MissionService{db: d.DB, rdb: d.Redis, analytics: analytics, now: d.Now}
	rewards := &RewardService{db: d.DB, rdb: d.Redis, analytics: analytics}
	profile := &ProfileService{db: d.DB, rdb: d.Redis, analytics: analytics, referrals: referrals, now: d.Now}
	return &Services{
		Auth: &AuthService{
			db:        d.DB,
			rdb:       d.Redis,
			secret:    d.JWTSecret,
			ttl:       d.JWTTTL,
			cost:      bcrypt.DefaultCost, // Tests lower this
			analytics: analytics,
			referrals: referrals,
		},
		Profile:   profile,
		Missions:  missions,
		Rewards:   rewards,
		Referrals: referrals,
		Analytics: analytics,
		AI: &AIService{
			db:          d.DB,
			rdb:         d.Redis,
			catalog:     d.Catalog,
			provider:    d.AI,
			recommender: ai.NewRecommender(d.AI, d.Catalog),
			simulator:   ai.NewSimulator(d.AI, d.Catalog),
			analytics:   analytics,
			metrics:     d.Metrics,
		},
		Admin: &AdminService{db: d.DB, rdb: d.Redis, analytics: analytics, missions: missions, rewards: rewards},
	}
}

// xpGrant is the outcome of adding XP to a user
type xpGrant struct {
	XP        int64 // Total XP after the grant
	Level     int   // Level after the grant
	LeveledUp bool  // Crossed a level boundary
}

// grantXP adds XP and recomputes the level. Run it inside a transaction.
func grantXP(ctx context.Context, tx *gorm.DB, userID string, amount int64) (xpGrant, error) {
	users := repository.NewUserRepo(tx)
	u, err := users.LockByID(ctx, userID) // Lock the user row
	if err != nil {
		return xpGrant{}, err
	}
	if u == nil {
		return xpGrant{}, notFound("user")
	}
	// Recompute level from the new total
	xp := u.XP + amount
	if xp < 0 {
		xp = 0
	}
	level := game.LevelForXP(xp)
	if err := users.UpdateFields(ctx, userID, map[string]any{"xp": xp, "level": level}); err != nil {
		return xpGrant{}, err
	}
	return xpGrant{XP: xp, Level: level, LeveledUp: level > u.Level}, nil
}

// aiProfile maps a user onto what the AI layer sees
func aiProfile(u *domain.User) ai.Profile {
	return ai.Profile{
		Age:          u.Age,
		Occupation:   u.Occupation,
		Dependents:   u.Dependents,
		AnnualIncome: u.AnnualIncome,
		City:         u.City,
		Integrations: u.IntegrationList(),
		LifeScore:    u.LifeScore,
		Level:        u.Level,
	}
}
