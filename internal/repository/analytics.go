package repository

import (
	"context" // Request scoped context
	"time"    // Timestamps and durations

	"qic_life/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// EventCount is the number of events of one type
type EventCount struct {
	EventType string `json:"event_type"` // Event type
	Count     int64  `json:"count"`      // Events in the window
}

// AnalyticsRepo stores analytics events
type AnalyticsRepo struct {
	db *gorm.DB
}

// NewAnalyticsRepo builds an AnalyticsRepo over db or a transaction
func NewAnalyticsRepo(db *gorm.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// Create inserts an event
func (r *AnalyticsRepo) Create(ctx context.Context, e *domain.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// CountByType counts events since a time, for one user or for everyone when userID is empty
func (r *AnalyticsRepo) CountByType(ctx context.Context, userID string, since time.Time) ([]EventCount, error) {
	q := r.db.WithContext(ctx).Model(&domain.AnalyticsEvent{}).
		Select("event_type, COUNT(*) AS count").
		Where("created_at >= ?", since)
	if userID != "" {
		q = q.Where("user_id = ?", userID) // One user
	}
	var counts []EventCount
	err := q.Group("event_type").Order("count desc").Order("event_type asc").Scan(&counts).Error
	return counts, err
}
