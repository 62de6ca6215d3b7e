package api

import (
	"context"  // Health check deadlines
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"qic_life/internal/service" // AI availability

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const checkTimeout = 2 * time.Second

// HealthHandler reports the state of the backing stores
func HealthHandler(db *gorm.DB, rdb *redis.Client, svc *service.AIService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		database := "up"
		if sqlDB, err := db.DB(); err != nil {
			database = "down"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			logrus.WithError(err).Warn("Database health check failed")
			database = "down"
		}

		cache := "disabled" // Redis is optional
		if rdb != nil {
			cache = "up"
			if err := rdb.Ping(ctx).Err(); err != nil {
				logrus.WithError(err).Warn("Redis health check failed")
				cache = "down"
			}
		}

		provider := "disabled"
		if svc != nil && svc.Enabled() {
			provider = "enabled"
		}

		status, code := "ok", http.StatusOK
		if database == "down" {
			status, code = "degraded", http.StatusServiceUnavailable
		} else if cache == "down" {
			status = "degraded" // Requests still work without the cache
		}
		body := gin.H{
			"status":   status,
			"database": database,
			"redis":    cache,
			"ai":       provider,
			"time":     time.Now().UTC().Format(time.RFC3339),
		}
		if code != http.StatusOK {
			c.JSON(code, gin.H{
				"success": false,                  // Error envelope
				"message": "Service unavailable",  // Human readable message
				"error":   "database unavailable", // Error detail
				"data":    body,                   // Check results
			})
			return
		}
		respond(c, code, body)
	}
}
