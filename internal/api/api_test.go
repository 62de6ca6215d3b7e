package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qic_life/internal/ai"
	"qic_life/internal/db"
	"qic_life/internal/domain"
	"qic_life/internal/events"
	"qic_life/internal/metrics"
	"qic_life/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newHarness(t *testing.T, rateLimit int) *harness {
	t.Helper()
	return buildHarness(t, rateLimit, nil)
}

// buildHarness serves the full router over a fresh database; rdb may be nil
func buildHarness(t *testing.T, rateLimit int, rdb *redis.Client) *harness {
	t.Helper()
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Seed(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	m := metrics.New()
	svc := service.New(service.Deps{
		DB:        gdb,
		Redis:     rdb,
		AI:        &ai.StubProvider{Disabled: true},
		Publisher: &events.MemoryPublisher{},
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
		Metrics:   m,
	})
	r, err := NewRouter(RouterConfig{
		DB:              gdb,
		Redis:           rdb,
		Services:        svc,
		Metrics:         m,
		JWTSecret:       testSecret,
		RateLimitWindow: time.Minute,
		RateLimitMax:    rateLimit,
	})
	require.NoError(t, err)
	return &harness{t: t, db: gdb, router: r}
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	var env envelope
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type authData struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *harness) register(email, code string) authData {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":         email,
		"password":      "password123",
		"name":          "Tester",
		"referral_code": code,
	})
	require.Equal(h.t, http.StatusCreated, status, env.Message)
	return decodeData[authData](h.t, env)
}

func (h *harness) onboard(token string) {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/profile/onboarding", token, gin.H{
		"integrations": []string{"google_fit", "fitbit", "strava"},
		"age":          34,
		"occupation":   "engineer",
		"dependents":   1,
	})
	require.Equal(h.t, http.StatusOK, status, env.Message)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	h := newHarness(t, 0)
	reg := h.register("Amira@Example.com", "")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "amira@example.com", reg.User.Email)
	assert.Equal(t, int64(100), reg.User.Coins)

	status, env := h.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "amira@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = h.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "short@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation failed", env.Error)

	status, _ = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "amira@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "AMIRA@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	login := decodeData[authData](t, env)

	status, _ = h.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = h.do(http.MethodGet, "/api/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decodeData[map[string]any](t, env)
	assert.Equal(t, float64(100), profile["coins"])
	assert.Equal(t, float64(1), profile["level"])

	status, env = h.do(http.MethodPut, "/api/profile", login.Token, gin.H{"age": 12})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "age")

	status, env = h.do(http.MethodPut, "/api/profile", login.Token, gin.H{"city": "Doha"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Doha", decodeData[map[string]any](t, env)["city"])
}

func TestOnboardingAndLedger(t *testing.T) {
	h := newHarness(t, 0)
	token := h.register("noor@example.com", "").Token

	status, env := h.do(http.MethodPost, "/api/profile/onboarding", token, gin.H{
		"integrations": []string{"google_fit", "fitbit"},
		"age":          30,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "integrations")

	h.onboard(token)
	status, _ = h.do(http.MethodPost, "/api/profile/onboarding", token, gin.H{
		"integrations": []string{"google_fit", "fitbit", "strava"},
		"age":          30,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, env = h.do(http.MethodGet, "/api/profile/transactions?page=1&page_size=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	page := decodeData[service.LedgerPage](t, env)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Transactions, 1)

	status, env = h.do(http.MethodGet, "/api/profile/transactions?page=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "page must be an integer", env.Message)

	status, env = h.do(http.MethodGet, "/api/profile/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	stats := decodeData[service.Stats](t, env)
	assert.Equal(t, int64(200), stats.Coins)
	assert.Equal(t, int64(200), stats.CoinsEarned)
}

func TestMissionRoutes(t *testing.T) {
	h := newHarness(t, 0)
	token := h.register("omar@example.com", "").Token

	status, env := h.do(http.MethodGet, "/api/missions?status=locked", token, nil)
	require.Equal(t, http.StatusOK, status)
	locked := decodeData[[]service.MissionView](t, env)
	assert.NotEmpty(t, locked)
	for _, m := range locked {
		assert.Equal(t, domain.MissionLocked, m.Status)
	}

	status, env = h.do(http.MethodPost, "/api/missions/emergency-fund/start", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "locked", env.Error)

	status, _ = h.do(http.MethodGet, "/api/missions/no-such-mission", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodPost, "/api/missions/daily-walk/complete", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodPost, "/api/missions/daily-walk/start", token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, domain.MissionActive, decodeData[service.MissionView](t, env).Status)

	status, _ = h.do(http.MethodPost, "/api/missions/daily-walk/start", token, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(http.MethodPut, "/api/missions/daily-walk/progress", token, gin.H{"progress": 150})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodPut, "/api/missions/daily-walk/progress", token, gin.H{"progress": 60})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 60, decodeData[service.MissionView](t, env).Progress)

	status, env = h.do(http.MethodGet, "/api/missions/active", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]service.MissionView](t, env), 1)

	status, env = h.do(http.MethodPost, "/api/missions/daily-walk/complete", token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	res := decodeData[service.CompletionResult](t, env)
	assert.Equal(t, int64(10), res.CoinsEarned)
	assert.Equal(t, int64(50), res.XPEarned)
	assert.Equal(t, int64(110), res.Coins)
	assert.Equal(t, 1, res.CurrentStreak)

	status, _ = h.do(http.MethodPost, "/api/missions/hydration-week/start", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = h.do(http.MethodPost, "/api/missions/hydration-week/abandon", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.MissionFailed, decodeData[service.MissionView](t, env).Status)

	status, env = h.do(http.MethodGet, "/api/profile/leaderboard?limit=5", token, nil)
	require.Equal(t, http.StatusOK, status)
	board := decodeData[[]service.LeaderboardEntry](t, env)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)
}

func TestRewardRoutes(t *testing.T) {
	h := newHarness(t, 0)
	token := h.register("lina@example.com", "").Token

	status, env := h.do(http.MethodPost, "/api/rewards/coffee-voucher/redeem", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient coins", env.Error)

	status, _ = h.do(http.MethodPost, "/api/rewards/unknown-reward/redeem", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	h.onboard(token)
	status, env = h.do(http.MethodGet, "/api/rewards", token, nil)
	require.Equal(t, http.StatusOK, status)
	affordable := map[string]bool{}
	for _, r := range decodeData[[]service.RewardView](t, env) {
		affordable[r.ID] = r.Affordable
	}
	assert.True(t, affordable["coffee-voucher"])
	assert.False(t, affordable["roadside-assist"])

	hook := logtest.NewGlobal()
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	status, env = h.do(http.MethodPost, "/api/rewards/coffee-voucher/redeem", token, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	redeemed := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "Reward redeemed" {
			redeemed++
			assert.Equal(t, "coffee-voucher", e.Data["reward_id"])
		}
	}
	assert.Equal(t, 1, redeemed) // One success line per redemption
	res := decodeData[service.RedemptionResult](t, env)
	assert.True(t, strings.HasPrefix(res.Redemption.VoucherCode, service.VoucherPrefix))
	assert.Equal(t, int64(50), res.Balance)

	status, env = h.do(http.MethodGet, "/api/rewards/redemptions", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]domain.Redemption](t, env), 1)
}

func TestReferralAndAnalyticsRoutes(t *testing.T) {
	h := newHarness(t, 0)
	referrer := h.register("rania@example.com", "")
	referred := h.register("samir@example.com", referrer.User.ReferralCode)

	status, env := h.do(http.MethodGet, "/api/referrals", referrer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	overview := decodeData[service.ReferralOverview](t, env)
	assert.Equal(t, referrer.User.ReferralCode, overview.Code)
	assert.Equal(t, 1, overview.Stats.Pending)

	h.onboard(referred.Token)
	status, env = h.do(http.MethodGet, "/api/referrals", referrer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	overview = decodeData[service.ReferralOverview](t, env)
	assert.Equal(t, 1, overview.Stats.Completed)
	assert.Equal(t, int64(200), overview.Stats.CoinsEarned)

	status, _ = h.do(http.MethodPost, "/api/referrals/apply", referrer.Token, gin.H{"code": "NOPE1234"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(http.MethodPost, "/api/referrals/apply", referrer.Token, gin.H{"code": referrer.User.ReferralCode})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do(http.MethodPost, "/api/referrals/apply", referred.Token, gin.H{"code": referrer.User.ReferralCode})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.do(http.MethodPost, "/api/analytics/events", referred.Token, gin.H{"event_type": "Bad Type"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do(http.MethodPost, "/api/analytics/events", referred.Token, gin.H{
		"event_type": "screen.viewed",
		"properties": gin.H{"screen": "missions"},
	})
	assert.Equal(t, http.StatusCreated, status)

	status, env = h.do(http.MethodGet, "/api/analytics/summary?days=7", referred.Token, nil)
	require.Equal(t, http.StatusOK, status)
	summary := decodeData[service.Summary](t, env)
	assert.Equal(t, 7, summary.Days)
	assert.GreaterOrEqual(t, summary.Total, int64(1))

	status, _ = h.do(http.MethodGet, "/api/analytics/summary?days=999", referred.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, env = h.do(http.MethodGet, "/api/analytics/summary?days=0", referred.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "days must be at least 1", env.Message)
	status, env = h.do(http.MethodGet, "/api/analytics/summary", referred.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 30, decodeData[service.Summary](t, env).Days) // Absent falls back to the default
}

func TestAIRoutesFallBackAndRefund(t *testing.T) {
	h := newHarness(t, 0)
	token := h.register("yusuf@example.com", "").Token

	status, env := h.do(http.MethodPost, "/api/ai/recommendations", token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	recs := decodeData[service.RecommendationResult](t, env)
	assert.Equal(t, ai.SourceFallback, recs.Source)
	assert.Equal(t, int64(0), recs.CoinsSpent)
	assert.Equal(t, int64(100), recs.Balance)
	assert.NotEmpty(t, recs.Recommendations)

	status, _ = h.do(http.MethodPost, "/api/ai/recommendations", token, gin.H{"focus": "spaceflight"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/api/ai/simulate", token, gin.H{"scenario": "alien_invasion"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = h.do(http.MethodPost, "/api/ai/simulate", token, gin.H{"scenario": "car_accident", "severity": "high"})
	require.Equal(t, http.StatusOK, status, env.Message)
	sim := decodeData[map[string]any](t, env)
	assert.Equal(t, "high", sim["severity"])
	assert.Equal(t, float64(0), sim["coins_spent"])
}

func TestPlanRoutes(t *testing.T) {
	h := newHarness(t, 0)

	status, env := h.do(http.MethodGet, "/api/plans?category=health", "", nil)
	require.Equal(t, http.StatusOK, status)
	plans := decodeData[[]map[string]any](t, env)
	require.NotEmpty(t, plans)
	for _, p := range plans {
		assert.Equal(t, "health", p["category"])
	}

	status, env = h.do(http.MethodPost, "/api/plans/bundle", "", gin.H{"plan_ids": []string{"motor-comprehensive", "health-plus"}})
	require.Equal(t, http.StatusOK, status, env.Message)
	quote := decodeData[map[string]any](t, env)
	assert.Equal(t, float64(10), quote["discount_percent"])

	status, _ = h.do(http.MethodPost, "/api/plans/bundle", "", gin.H{"plan_ids": []string{"motor-comprehensive", "no-such-plan"}})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(http.MethodPost, "/api/plans/bundle", "", gin.H{"plan_ids": []string{"motor-comprehensive"}})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do(http.MethodPost, "/api/plans/bundle", "", gin.H{"plan_ids": []string{"health-plus", "health-plus"}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t, 0)
	admin := h.register("admin@example.com", "")
	member := h.register("member@example.com", "")
	require.NoError(t, h.db.Model(&domain.User{}).Where("id = ?", admin.User.ID).Update("role", domain.RoleAdmin).Error)

	status, _ := h.do(http.MethodGet, "/api/admin/users", member.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := h.do(http.MethodGet, "/api/admin/users?page_size=1", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	users := decodeData[service.UserPage](t, env)
	assert.Equal(t, int64(2), users.Total)
	assert.Len(t, users.Users, 1)

	status, env = h.do(http.MethodGet, "/api/admin/transactions?type=signup_bonus&from=2000-01-01", admin.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, int64(2), decodeData[service.LedgerPage](t, env).Total)

	signupAt := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	require.NoError(t, h.db.Model(&domain.CoinTransaction{}).Where("user_id = ?", member.User.ID).Update("created_at", signupAt).Error)
	status, env = h.do(http.MethodGet, "/api/admin/transactions?from=2026-03-02&to=2026-03-02", admin.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	day := decodeData[service.LedgerPage](t, env)
	assert.Equal(t, int64(1), day.Total) // Afternoon row counts for a to= date
	status, env = h.do(http.MethodGet, "/api/admin/transactions?to=2026-03-01", admin.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Zero(t, decodeData[service.LedgerPage](t, env).Total)

	status, _ = h.do(http.MethodGet, "/api/admin/transactions?from=yesterday", admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.do(http.MethodGet, "/api/admin/transactions?type=bogus", admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodGet, "/api/admin/analytics?days=0", admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, env = h.do(http.MethodGet, "/api/admin/analytics", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, decodeData[service.Summary](t, env).Total, int64(2))

	status, env = h.do(http.MethodPost, "/api/admin/missions", admin.Token, gin.H{
		"id":             "stretch-break",
		"title":          "Stretch break",
		"category":       "health",
		"difficulty":     "easy",
		"xp_reward":      30,
		"coin_reward":    5,
		"required_level": 1,
		"duration_days":  1,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	status, _ = h.do(http.MethodPost, "/api/admin/missions", admin.Token, gin.H{
		"id":             "stretch-break",
		"title":          "Again",
		"category":       "health",
		"difficulty":     "easy",
		"required_level": 1,
		"duration_days":  1,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, env = h.do(http.MethodPost, "/api/admin/rewards", admin.Token, gin.H{
		"id":        "movie-ticket",
		"title":     "Movie ticket",
		"category":  "lifestyle",
		"coin_cost": 250,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, float64(domain.UnlimitedStock), decodeData[map[string]any](t, env)["stock"])
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	h := newHarness(t, 2)
	for i := 0; i < 2; i++ {
		status, _ := h.do(http.MethodGet, "/api/plans", "", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, env := h.do(http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", env.Error)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 0)
	status, env := h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	body := decodeData[map[string]any](t, env)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", body["database"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "disabled", body["ai"])
}

func TestRoutesWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	h := buildHarness(t, 3, rdb)

	status, env := h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	body := decodeData[map[string]any](t, env)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", body["redis"])

	// Two more requests fill the window counted in redis
	token := h.register("lina@example.com", "").Token
	status, _ = h.do(http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, status)
	status, env = h.do(http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", env.Error)
	var windows []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "ratelimit:api:ip:") {
			windows = append(windows, k)
		}
	}
	assert.NotEmpty(t, windows)

	// Authenticated calls are keyed by user, so the IP window does not apply
	status, env = h.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	mr.Close()
	status, env = h.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	body = decodeData[map[string]any](t, env)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "down", body["redis"])
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	r := gin.New()
	r.GET("/api/health", HealthHandler(gdb, nil, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "Service unavailable", env.Message)
	assert.Equal(t, "database unavailable", env.Error)
	body := decodeData[map[string]any](t, env)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "down", body["database"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
