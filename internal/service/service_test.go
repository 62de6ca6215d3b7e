package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"qic_life/internal/ai"
	"qic_life/internal/db"
	"qic_life/internal/domain"
	"qic_life/internal/events"
	"qic_life/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc       *Services
	db        *gorm.DB
	provider  *ai.StubProvider
	publisher *events.MemoryPublisher
	clock     *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, nil)
}

// buildFixture wires the services over a fresh database; rdb may be nil
func buildFixture(t *testing.T, rdb *redis.Client) *fixture {
	t.Helper()
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Seed(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	f := &fixture{
		db:        gdb,
		provider:  &ai.StubProvider{Disabled: true},
		publisher: &events.MemoryPublisher{},
		clock:     &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = New(Deps{
		DB:        gdb,
		Redis:     rdb,
		AI:        f.provider,
		Publisher: f.publisher,
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
		Now:       f.clock.Now,
	})
	f.svc.Auth.cost = bcrypt.MinCost
	return f
}

func (f *fixture) register(t *testing.T, email, code string) *domain.User {
	t.Helper()
	res, err := f.svc.Auth.Register(context.Background(), RegisterInput{Email: email, Password: "password123", Name: "Test", ReferralCode: code})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := repository.NewUserRepo(f.db).FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (f *fixture) onboard(t *testing.T, userID string) *OnboardingResult {
	t.Helper()
	res, err := f.svc.Profile.Onboard(context.Background(), userID, OnboardingInput{
		Integrations: []string{"fitbit", "open_banking", "calendar"},
		Age:          34,
		Occupation:   "engineer",
		Dependents:   2,
		AnnualIncome: 72000,
	})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Auth.Register(ctx, RegisterInput{Email: " Ann@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, "ann", res.User.Name)
	assert.Equal(t, int64(100), res.User.Coins)
	assert.Equal(t, 1, res.User.Level)
	assert.Equal(t, 50, res.User.LifeScore)
	assert.Len(t, res.User.ReferralCode, 8)

	page, err := f.svc.Profile.Transactions(ctx, res.User.ID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, domain.TxSignupBonus, page.Transactions[0].Type)
	assert.Equal(t, int64(100), page.Transactions[0].BalanceAfter)

	_, err = f.svc.Auth.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	login, err := f.svc.Auth.Login(ctx, "ANN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	_, err = f.svc.Auth.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterWithUnknownReferralCodeRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Auth.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password123", ReferralCode: "NOPE1234"})
	assert.ErrorIs(t, err, ErrNotFound)

	existing, err := repository.NewUserRepo(f.db).FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Nil(t, existing)
}

func TestRegisterConcurrentDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var raceErr error
	fired := false
	// Insert the same email between the lookup and the insert of the registration
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:concurrent_signup", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*domain.User); !ok || fired {
			return
		}
		fired = true
		now := time.Now()
		raceErr = tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (id, email, password, role, level, lifescore, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			"other-user", "ann@example.com", "x", domain.RoleUser, 1, 50, now, now,
		).Error
	}))

	_, err := f.svc.Auth.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "password123"})
	require.True(t, fired)
	require.NoError(t, raceErr)
	assert.ErrorIs(t, err, ErrConflict)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "email is already registered", svcErr.Message)
}

func TestReferralCompletesOnOnboarding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	referrer := f.register(t, "ref@example.com", "")
	referred := f.register(t, "new@example.com", referrer.ReferralCode)

	overview, err := f.svc.Referrals.Overview(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, referrer.ReferralCode, overview.Code)
	assert.Equal(t, ReferralStats{Total: 1, Pending: 1}, overview.Stats)

	res := f.onboard(t, referred.ID)
	assert.True(t, res.ReferralCompleted)
	assert.Equal(t, int64(100), res.CoinsAwarded)

	got := f.user(t, referred.ID)
	assert.Equal(t, int64(300), got.Coins)
	assert.Equal(t, int64(50), got.XP)
	assert.True(t, got.OnboardingCompleted)
	assert.Equal(t, []string{"fitbit", "open_banking", "calendar"}, got.IntegrationList())

	owner := f.user(t, referrer.ID)
	assert.Equal(t, int64(300), owner.Coins)
	assert.Equal(t, int64(100), owner.XP)
	assert.Equal(t, 2, owner.Level)

	overview, err = f.svc.Referrals.Overview(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, ReferralStats{Total: 1, Completed: 1, CoinsEarned: 200}, overview.Stats)
}

func TestApplyReferral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	referrer := f.register(t, "ref@example.com", "")
	user := f.register(t, "user@example.com", "")

	_, err := f.svc.Referrals.Apply(ctx, user.ID, "ZZZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Referrals.Apply(ctx, user.ID, user.ReferralCode)
	assert.ErrorIs(t, err, ErrValidation)

	f.onboard(t, user.ID)
	ref, err := f.svc.Referrals.Apply(ctx, user.ID, referrer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, domain.ReferralCompleted, ref.Status)
	assert.True(t, ref.BonusAwarded)
	assert.Equal(t, int64(300), f.user(t, referrer.ID).Coins)

	_, err = f.svc.Referrals.Apply(ctx, user.ID, referrer.ReferralCode)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestOnboardingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "ann@example.com", "")

	cases := map[string]OnboardingInput{
		"too few":   {Integrations: []string{"fitbit", "strava"}, Age: 30},
		"too many":  {Integrations: []string{"fitbit", "strava", "garmin", "calendar"}, Age: 30},
		"unknown":   {Integrations: []string{"fitbit", "strava", "myspace"}, Age: 30},
		"duplicate": {Integrations: []string{"fitbit", "strava", "fitbit"}, Age: 30},
		"too young": {Integrations: []string{"fitbit", "strava", "garmin"}, Age: 17},
		"negative":  {Integrations: []string{"fitbit", "strava", "garmin"}, Age: 30, AnnualIncome: -1},
	}
	for name, in := range cases {
		_, err := f.svc.Profile.Onboard(ctx, u.ID, in)
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	f.onboard(t, u.ID)
	_, err := f.svc.Profile.Onboard(ctx, u.ID, OnboardingInput{Integrations: []string{"fitbit", "strava", "garmin"}, Age: 30})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(200), f.user(t, u.ID).Coins)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "ann@example.com", "")

	name, age, city := "Ann Lee", 41, "Doha"
	p, err := f.svc.Profile.Update(ctx, u.ID, ProfileUpdate{Name: &name, Age: &age, City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", p.Name)
	assert.Equal(t, 41, p.Age)
	assert.Equal(t, "Doha", p.City)

	badAge := 12
	_, err = f.svc.Profile.Update(ctx, u.ID, ProfileUpdate{Age: &badAge})
	assert.ErrorIs(t, err, ErrValidation)
	badDependents := 25
	_, err = f.svc.Profile.Update(ctx, u.ID, ProfileUpdate{Dependents: &badDependents})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Profile.Update(ctx, u.ID, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Profile.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionsPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "ann@example.com", "")
	f.onboard(t, u.ID)

	page, err := f.svc.Profile.Transactions(ctx, u.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Transactions, 1)

	page, err = f.svc.Profile.Transactions(ctx, u.ID, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
}

func TestAdminListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ann@example.com", "")
	f.register(t, "bob@example.com", "")

	users, err := f.svc.Admin.Users(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users.Total)
	assert.Equal(t, 2, users.TotalPages)

	ledger, err := f.svc.Admin.Transactions(ctx, LedgerQuery{Type: domain.TxSignupBonus})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ledger.Total)

	_, err = f.svc.Admin.Transactions(ctx, LedgerQuery{Type: "gift"})
	assert.ErrorIs(t, err, ErrValidation)
	from, to := time.Now(), time.Now().Add(-time.Hour)
	_, err = f.svc.Admin.Transactions(ctx, LedgerQuery{From: &from, To: &to})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestErrorKinds(t *testing.T) {
	err := notFound("mission")
	assert.Equal(t, "mission not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))

	var locked error = &LockedError{MissionID: "safe-driver", RequiredLevel: 4}
	assert.ErrorIs(t, locked, ErrLocked)
	assert.Equal(t, "mission safe-driver unlocks at level 4", locked.Error())
}
