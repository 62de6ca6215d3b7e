package middleware

import (
	"context"  // Request scoped context
	"fmt"      // String formatting
	"math"     // Rounding
	"net/http" // HTTP client and status codes
	"strconv"  // String conversion
	"sync"     // Mutex
	"time"     // Timestamps and durations

	"qic_life/internal/metrics" // Prometheus collectors

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// RateLimiter counts requests in fixed windows, in redis when available and in memory otherwise
type RateLimiter struct {
	rdb     *redis.Client    // Shared counter store, nil for memory only
	metrics *metrics.Metrics // Rejection counter
	now     func() time.Time // Clock

	mu        sync.Mutex              // Guards windows and lastSweep
	windows   map[string]*fixedWindow // In-memory counters by scope:key
	lastSweep time.Time               // Start of the window last swept
}

type fixedWindow struct {
	start time.Time // Window start
	count int64     // Requests seen in the window
}

// NewRateLimiter builds a limiter; a nil redis client keeps every window in memory
func NewRateLimiter(rdb *redis.Client, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		rdb:     rdb,                           // May be nil
		metrics: m,                             // Metrics registry
		now:     time.Now,                      // Wall clock
		windows: make(map[string]*fixedWindow), // Empty counters
	}
}

// Hit counts one request for key in the current window.
// It returns the count so far and when the window resets.
func (l *RateLimiter) Hit(ctx context.Context, scope, key string, window time.Duration) (int64, time.Time) {
	// Align the window to the clock
	now := l.now()
	start := now.Truncate(window)
	reset := start.Add(window)

	// Prefer redis so every instance shares the count
	if l.rdb != nil {
		count, err := l.hitRedis(ctx, scope, key, start, window)
		if err == nil {
			return count, reset
		}
		logrus.WithError(err).WithField("scope", scope).Warn("Rate limit store unavailable, counting in memory")
	}
	return l.hitMemory(scope+":"+key, start, window), reset // Fall back to local counters
}

// hitRedis increments the window counter and sets its expiry in one round trip
func (l *RateLimiter) hitRedis(ctx context.Context, scope, key string, start time.Time, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", scope, key, start.Unix()) // One key per window

	// INCR and EXPIRE in a MULTI block
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+time.Second) // Outlive the window by a second
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err // Caller falls back to memory
	}
	return incr.Val(), nil
}

// hitMemory counts in the local map and drops expired windows once per window
func (l *RateLimiter) hitMemory(key string, start time.Time, window time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Sweep windows older than the current one
	if start.Sub(l.lastSweep) >= window {
		for k, w := range l.windows {
			if w.start.Before(start) {
				delete(l.windows, k)
			}
		}
		l.lastSweep = start
	}

	// Start a new window when the key is new or its window rolled over
	w, ok := l.windows[key]
	if !ok || !w.start.Equal(start) {
		w = &fixedWindow{start: start}
		l.windows[key] = w
	}
	w.count++ // Count this request
	return w.count
}

// Middleware limits requests per user, or per client IP before authentication
func (l *RateLimiter) Middleware(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A zero limit disables the middleware
		if limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		// Key by user when authenticated, by client IP otherwise
		key := c.GetString(UserIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		// Count the request
		count, reset := l.Hit(c.Request.Context(), scope, key, window)
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))                  // Allowed per window
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10)) // Left in this window
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))  // Window end, unix seconds

		// Reject once the window is exhausted
		if count > int64(limit) {
			retry := int(math.Ceil(reset.Sub(l.now()).Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry)) // Seconds until reset
			l.metrics.RateLimited(scope)
			logrus.WithFields(logrus.Fields{
				"scope": scope, // Limiter scope
				"key":   key,   // User or IP
				"count": count, // Requests in the window
			}).Warn("Rate limit exceeded")
			abort(c, http.StatusTooManyRequests, "Too many requests, please slow down", "rate limit exceeded")
			return
		}
		c.Next() // Continue to handler
	}
}
