package service

import (
	"context"       // Request scoped context
	"encoding/json" // JSON encoding
	"regexp"        // Pattern validation
	"time"          // Timestamps and durations

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/events"     // Analytics publishing
	"qic_life/internal/repository" // Data access

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Server-side event types
const (
	EventUserRegistered      = "user_registered"
	EventOnboardingCompleted = "onboarding_completed"
	EventMissionStarted      = "mission_started"
	EventMissionCompleted    = "mission_completed"
	EventRewardRedeemed      = "reward_redeemed"
	EventReferralApplied     = "referral_applied"
	EventAIRecommendation    = "ai_recommendation"
	EventScenarioSimulated   = "scenario_simulated"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365
)

var eventTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_.]{1,63}$`)

// AnalyticsService stores and publishes analytics events
type AnalyticsService struct {
	db        *gorm.DB         // Database handle
	publisher events.Publisher // Broker or no-op
	now       func() time.Time // Clock
}

// Summary counts events by type over a window
type Summary struct {
	Days   int                     `json:"days"`
	Since  time.Time               `json:"since"`
	Total  int64                   `json:"total"`
	Counts []repository.EventCount `json:"counts"`
}

// Track validates and stores a client event
func (s *AnalyticsService) Track(ctx context.Context, userID, eventType string, properties map[string]any) (*domain.AnalyticsEvent, error) {
	if !eventTypePattern.MatchString(eventType) {
		return nil, invalid("event_type must be 2-64 lower-case letters, digits, '_' or '.' and start with a letter")
	}
	return s.store(ctx, userID, eventType, properties)
}

// Record stores a server-side event; failures are logged and swallowed
func (s *AnalyticsService) Record(ctx context.Context, userID, eventType string, properties map[string]any) {
	if _, err := s.store(ctx, userID, eventType, properties); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,
			"event_type": eventType,
			"error":      err.Error(),
		}).Error("Failed to record analytics event")
	}
}

func (s *AnalyticsService) store(ctx context.Context, userID, eventType string, properties map[string]any) (*domain.AnalyticsEvent, error) {
	e := &domain.AnalyticsEvent{EventType: eventType, CreatedAt: s.now().UTC()}
	if userID != "" {
		e.UserID = &userID // Anonymous events keep a NULL user
	}

	// Serialize properties
	if len(properties) > 0 {
		raw, err := json.Marshal(properties)
		if err != nil {
			return nil, invalid("properties must be a JSON object")
		}
		e.Properties = string(raw)
	}
	// Store the event
	if err := repository.NewAnalyticsRepo(s.db).Create(ctx, e); err != nil {
		return nil, err
	}

	// Publish after the row exists; the stored event is the source of truth
	msg := events.Event{ID: e.ID, UserID: userID, EventType: e.EventType, CreatedAt: e.CreatedAt}
	if e.Properties != "" {
		msg.Properties = json.RawMessage(e.Properties)
	}
	if err := s.publisher.Publish(msg); err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Warn("Failed to publish analytics event")
	}
	return e, nil
}

// Summary counts the user's events over the last days
func (s *AnalyticsService) Summary(ctx context.Context, userID string, days int) (*Summary, error) {
	return s.summarize(ctx, userID, days)
}

// Global counts every user's events over the last days
func (s *AnalyticsService) Global(ctx context.Context, days int) (*Summary, error) {
	return s.summarize(ctx, "", days)
}

func (s *AnalyticsService) summarize(ctx context.Context, userID string, days int) (*Summary, error) {
	if days == 0 {
		days = defaultSummaryDays // Absent query parameter
	}
	if days < 1 || days > maxSummaryDays {
		return nil, invalid("days must be between 1 and %d", maxSummaryDays)
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	counts, err := repository.NewAnalyticsRepo(s.db).CountByType(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Days: days, Since: since, Counts: counts}
	if sum.Counts == nil {
		sum.Counts = []repository.EventCount{}
	}
	for _, c := range counts {
		sum.Total += c.Count // Sum across types
	}
	return sum, nil
}
