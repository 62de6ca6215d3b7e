package repository

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"time"    // Timestamps and durations

	"qic_life/internal/domain" // Domain models

	"gorm.io/gorm" // GORM ORM library
)

// MissionRepo reads and writes missions and user missions
type MissionRepo struct {
	db *gorm.DB
}

// NewMissionRepo builds a MissionRepo over db or a transaction
func NewMissionRepo(db *gorm.DB) *MissionRepo {
	return &MissionRepo{db: db}
}

// ListActive returns active missions, optionally of one category
func (r *MissionRepo) ListActive(ctx context.Context, category string) ([]domain.Mission, error) {
	q := r.db.WithContext(ctx).Where("active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var missions []domain.Mission
	err := q.Order("required_level asc").Order("id asc").Find(&missions).Error
	return missions, err
}

// FindByID returns the mission or nil when missing
func (r *MissionRepo) FindByID(ctx context.Context, id string) (*domain.Mission, error) {
	var m domain.Mission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts a mission
func (r *MissionRepo) Create(ctx context.Context, m *domain.Mission) error {
	return insertErr(r.db.WithContext(ctx).Create(m).Error)
}

// UserMissions returns the user's missions keyed by mission id
func (r *MissionRepo) UserMissions(ctx context.Context, userID string) (map[string]domain.UserMission, error) {
	var rows []domain.UserMission
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]domain.UserMission, len(rows))
	for _, um := range rows {
		out[um.MissionID] = um
	}
	return out, nil
}

// FindUserMission returns the user's record for a mission or nil
func (r *MissionRepo) FindUserMission(ctx context.Context, userID, missionID string) (*domain.UserMission, error) {
	var um domain.UserMission
	err := r.db.WithContext(ctx).Where("user_id = ? AND mission_id = ?", userID, missionID).First(&um).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &um, nil
}

// SaveUserMission inserts or updates a user mission
func (r *MissionRepo) SaveUserMission(ctx context.Context, um *domain.UserMission) error {
	return r.db.WithContext(ctx).Save(um).Error
}

// TransitionUserMission moves a user mission from one status to another.
// It reports false when the row was no longer in the from status.
func (r *MissionRepo) TransitionUserMission(ctx context.Context, id, from string, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.UserMission{}).
		Where("id = ? AND status = ?", id, from).Updates(fields) // Compare and set on status
	return res.RowsAffected > 0, res.Error
}

// ListByStatus returns the user's missions in one status
func (r *MissionRepo) ListByStatus(ctx context.Context, userID, status string) ([]domain.UserMission, error) {
	var rows []domain.UserMission
	err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, status).
		Order("started_at desc").Find(&rows).Error
	return rows, err
}

// CountByStatus counts the user's missions in one status
func (r *MissionRepo) CountByStatus(ctx context.Context, userID, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.UserMission{}).
		Where("user_id = ? AND status = ?", userID, status).Count(&n).Error
	return n, err
}

// TotalCompletions sums how many times the user completed missions
func (r *MissionRepo) TotalCompletions(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.UserMission{}).
		Select("COALESCE(SUM(completions), 0)").Where("user_id = ?", userID).Scan(&n).Error
	return n, err
}

// ExpireOverdue fails active missions whose duration has elapsed by now
func (r *MissionRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	// Load active missions with their duration
	var rows []struct {
		ID           string     // User mission ID
		StartedAt    *time.Time // Start time
		DurationDays int        // Mission duration
	}
	err := r.db.WithContext(ctx).Table("user_missions").
		Select("user_missions.id, user_missions.started_at, missions.duration_days").
		Joins("JOIN missions ON missions.id = user_missions.mission_id").
		Where("user_missions.status = ?", domain.MissionActive).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}
	// Date arithmetic stays in Go so every dialect agrees
	var overdue []string
	for _, row := range rows {
		if row.StartedAt == nil || row.DurationDays <= 0 {
			continue // Open ended
		}
		if row.StartedAt.AddDate(0, 0, row.DurationDays).Before(now) {
			overdue = append(overdue, row.ID)
		}
	}
	if len(overdue) == 0 {
		return 0, nil
	}
	// Fail the overdue rows still active
	res := r.db.WithContext(ctx).Model(&domain.UserMission{}).
		Where("id IN ? AND status = ?", overdue, domain.MissionActive).
		Update("status", domain.MissionFailed)
	return res.RowsAffected, res.Error
}
