package api

import (
	"time" // Rate limit window

	"qic_life/internal/catalog"    // Plan catalog
	"qic_life/internal/metrics"    // Prometheus collectors
	"qic_life/internal/middleware" // Custom package for middleware
	"qic_life/internal/service"    // Business services

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// RouterConfig carries what the routes need
type RouterConfig struct {
	DB        *gorm.DB
	Redis     *redis.Client // nil disables caching and keeps rate limits in memory
	Services  *service.Services
	Catalog   *catalog.Catalog
	Metrics   *metrics.Metrics // nil disables /metrics
	JWTSecret string

	RateLimitWindow time.Duration // Fixed window length
	RateLimitMax    int           // Requests per window and caller, 0 disables
	AIRateLimitMax  int           // Extra limit for /api/ai, 0 disables
	TrustedProxies  []string      // Proxies allowed to set the client IP
}

// NewRouter builds the gin engine with every route of the API
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.MustDefault() // Embedded plans
	}
	r := gin.New() // Gin router instance
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery(), middleware.MetricsMiddleware(cfg.Metrics), middleware.RequestLogger())

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler())) // Prometheus scrape endpoint
	}

	limiter := middleware.NewRateLimiter(cfg.Redis, cfg.Metrics)
	limit := limiter.Middleware("api", cfg.RateLimitMax, cfg.RateLimitWindow) // Keyed by user, or IP when anonymous
	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	svc := cfg.Services

	root := r.Group("/api")

	// Public routes, limited per client IP
	public := root.Group("", limit)
	public.GET("/health", HealthHandler(cfg.DB, cfg.Redis, svc.AI)) // Health endpoint
	public.POST("/auth/register", RegisterHandler(svc.Auth))        // Registration endpoint
	public.POST("/auth/login", LoginHandler(svc.Auth))              // Login endpoint
	public.GET("/plans", ListPlansHandler(cfg.Catalog))             // Plan catalog endpoint
	public.POST("/plans/bundle", BundleQuoteHandler(cfg.Catalog))   // Bundle pricing endpoint

	// Protected routes, limited per user
	protected := root.Group("", auth, limit)

	profile := protected.Group("/profile")
	profile.GET("", GetProfileHandler(svc.Profile))                      // Profile endpoint
	profile.PUT("", UpdateProfileHandler(svc.Profile))                   // Profile update endpoint
	profile.POST("/onboarding", OnboardingHandler(svc.Profile))          // Onboarding endpoint
	profile.GET("/stats", StatsHandler(svc.Profile))                     // Stats endpoint
	profile.GET("/transactions", TransactionHistoryHandler(svc.Profile)) // Coin ledger endpoint
	profile.GET("/leaderboard", LeaderboardHandler(svc.Profile))         // Leaderboard endpoint

	missions := protected.Group("/missions")
	missions.GET("", ListMissionsHandler(svc.Missions))                  // Mission list endpoint
	missions.GET("/active", ActiveMissionsHandler(svc.Missions))         // Active missions endpoint
	missions.GET("/:id", GetMissionHandler(svc.Missions))                // Mission endpoint
	missions.POST("/:id/start", StartMissionHandler(svc.Missions))       // Start endpoint
	missions.PUT("/:id/progress", ProgressMissionHandler(svc.Missions))  // Progress endpoint
	missions.POST("/:id/complete", CompleteMissionHandler(svc.Missions)) // Completion endpoint
	missions.POST("/:id/abandon", AbandonMissionHandler(svc.Missions))   // Abandon endpoint

	rewards := protected.Group("/rewards")
	rewards.GET("", ListRewardsHandler(svc.Rewards))              // Reward shop endpoint
	rewards.GET("/redemptions", RedemptionsHandler(svc.Rewards))  // Redemption history endpoint
	rewards.POST("/:id/redeem", RedeemRewardHandler(svc.Rewards)) // Redeem endpoint

	referrals := protected.Group("/referrals")
	referrals.GET("", ReferralOverviewHandler(svc.Referrals))     // Referral overview endpoint
	referrals.POST("/apply", ApplyReferralHandler(svc.Referrals)) // Apply code endpoint

	analytics := protected.Group("/analytics")
	analytics.POST("/events", TrackEventHandler(svc.Analytics))       // Event tracking endpoint
	analytics.GET("/summary", AnalyticsSummaryHandler(svc.Analytics)) // Event summary endpoint

	// AI routes carry a second, stricter limit
	aiGroup := protected.Group("/ai", limiter.Middleware("ai", cfg.AIRateLimitMax, cfg.RateLimitWindow))
	aiGroup.POST("/recommendations", RecommendationsHandler(svc.AI)) // Recommendation endpoint
	aiGroup.POST("/simulate", SimulateHandler(svc.AI))               // Simulation endpoint

	// Admin routes (protected, admin only)
	admin := protected.Group("/admin", middleware.AdminOnlyMiddleware(cfg.DB))
	admin.GET("/users", ListUsersHandler(svc.Admin))               // List users endpoint
	admin.GET("/transactions", ListTransactionsHandler(svc.Admin)) // List transactions endpoint
	admin.GET("/analytics", GlobalAnalyticsHandler(svc.Admin))     // Global analytics endpoint
	admin.POST("/missions", CreateMissionHandler(svc.Admin))       // Create mission endpoint
	admin.POST("/rewards", CreateRewardHandler(svc.Admin))         // Create reward endpoint

	return r, nil
}
