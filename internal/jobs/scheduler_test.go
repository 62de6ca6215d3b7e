package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qic_life/internal/db"
	"qic_life/internal/domain"
	"qic_life/internal/metrics"
	"qic_life/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSpecsAndDuplicates(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) (int64, error) { return 0, nil }
	assert.Error(t, s.Add("bad", "not a cron spec", noop))
	require.NoError(t, s.Add("nightly", "5 0 * * *", noop))
	assert.Error(t, s.Add("nightly", "@every 1h", noop))
	require.NoError(t, s.Add("manual", "", noop))

	_, err := s.RunNow("missing")
	assert.Error(t, err)
}

func TestRunNowRecordsMetrics(t *testing.T) {
	m := metrics.New()
	s := New(m)
	require.NoError(t, s.Add("ok", "", func(context.Context) (int64, error) { return 3, nil }))
	require.NoError(t, s.Add("broken", "", func(context.Context) (int64, error) { return 0, errors.New("db down") }))

	n, err := s.RunNow("ok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_, err = s.RunNow("broken")
	assert.EqualError(t, err, "db down")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `qic_life_jobs_runs_total{job="ok",success="true"} 1`)
	assert.Contains(t, body, `qic_life_jobs_runs_total{job="broken",success="false"} 1`)
}

func TestScheduledJobFires(t *testing.T) {
	s := New(nil)
	fired := make(chan struct{}, 1)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) (int64, error) {
		select {
		case fired <- struct{}{}:
		default:
		}
		return 0, nil
	}))
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

func TestMaintenanceJobs(t *testing.T) {
	gdb, err := db.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.Seed(gdb))
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := service.New(service.Deps{
		DB:        gdb,
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
		Now:       func() time.Time { return now },
	})
	ctx := context.Background()
	res, err := svc.Auth.Register(ctx, service.RegisterInput{Email: "hala@example.com", Password: "password123"})
	require.NoError(t, err)
	userID := res.User.ID

	_, err = svc.Missions.Start(ctx, userID, "hydration-week")
	require.NoError(t, err)
	lastActive := now.AddDate(0, 0, -3)
	require.NoError(t, gdb.Model(&domain.User{}).Where("id = ?", userID).
		Updates(map[string]any{"current_streak": 4, "last_active_on": lastActive}).Error)

	s := New(nil)
	require.NoError(t, Register(s, svc, "", ""))

	n, err := s.RunNow(MissionExpiry)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	now = now.AddDate(0, 0, 8)
	n, err = s.RunNow(MissionExpiry)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	view, err := svc.Missions.Get(ctx, userID, "hydration-week")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionFailed, view.Status)

	n, err = s.RunNow(StreakReset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	var user domain.User
	require.NoError(t, gdb.First(&user, "id = ?", userID).Error)
	assert.Equal(t, 0, user.CurrentStreak)
}
