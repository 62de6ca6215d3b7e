package service

import (
	"context" // Request scoped context
	"fmt"     // String formatting
	"time"    // Timestamps and durations

	"qic_life/internal/utils" // Cache and JWT helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Cache lifetimes
const (
	profileCacheTTL     = 5 * time.Minute
	listCacheTTL        = 60 * time.Second
	leaderboardCacheTTL = 60 * time.Second
)

func profileKey(userID string) string { return "profile:" + userID }

func ledgerPrefix(userID string) string { return "ledger:user:" + userID + ":" }

func ledgerKey(userID string, page, size int) string {
	return fmt.Sprintf("%spage:%d:size:%d", ledgerPrefix(userID), page, size)
}

const (
	leaderboardPrefix = "leaderboard:"
	adminPrefix       = "admin:"
)

// invalidateUsers drops every cached view touched by a change to these users
func invalidateUsers(ctx context.Context, rdb *redis.Client, userIDs ...string) {
	if rdb == nil {
		return
	}
	// Per user views
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if err := utils.DeleteCache(ctx, rdb, profileKey(id)); err != nil {
			logrus.WithError(err).WithField("user_id", id).Warn("Failed to invalidate profile cache")
		}
		if err := utils.DeleteCachePrefix(ctx, rdb, ledgerPrefix(id)); err != nil {
			logrus.WithError(err).WithField("user_id", id).Warn("Failed to invalidate ledger cache")
		}
	}
	// Shared views rank or list every user
	for _, prefix := range []string{leaderboardPrefix, adminPrefix} {
		if err := utils.DeleteCachePrefix(ctx, rdb, prefix); err != nil {
			logrus.WithError(err).WithField("prefix", prefix).Warn("Failed to invalidate cache")
		}
	}
}
