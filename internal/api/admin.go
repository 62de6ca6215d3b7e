package api

import (
	"net/http" // HTTP status codes
	"time"     // Date filters

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListUsersHandler returns all users with pagination, served from cache when possible
func ListUsersHandler(admin *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, ok := queryInt(c, "page") // Page number, defaults to 1
		if !ok {
			return
		}
		size, ok := queryInt(c, "page_size") // Page size, defaults to 20, capped at 100
		if !ok {
			return
		}
		out, err := admin.Users(c.Request.Context(), page, size)
		if err != nil {
			handleError(c, err, "User listing")
			return
		}
		respond(c, http.StatusOK, out)
	}
}

// ListTransactionsHandler returns the ledger, with optional filtering by user, type, or date
func ListTransactionsHandler(admin *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := service.LedgerQuery{
			UserID: c.Query("user_id"), // Filter by user ID
			Type:   c.Query("type"),    // Filter by transaction type
		}
		var ok bool
		if q.Page, ok = queryInt(c, "page"); !ok {
			return
		}
		if q.PageSize, ok = queryInt(c, "page_size"); !ok {
			return
		}
		if q.From, ok = queryTime(c, "from", false); !ok {
			return
		}
		if q.To, ok = queryTime(c, "to", true); !ok { // A bare date includes the whole day
			return
		}
		out, err := admin.Transactions(c.Request.Context(), q)
		if err != nil {
			handleError(c, err, "Transaction listing")
			return
		}
		respond(c, http.StatusOK, out)
	}
}

// GlobalAnalyticsHandler counts every user's events by type
func GlobalAnalyticsHandler(admin *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, ok := queryDays(c) // Window length, defaults to 30
		if !ok {
			return
		}
		summary, err := admin.Analytics(c.Request.Context(), days)
		if err != nil {
			handleError(c, err, "Global analytics")
			return
		}
		respond(c, http.StatusOK, summary)
	}
}

// CreateMissionHandler adds a mission to the catalog
func CreateMissionHandler(admin *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.MissionInput // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		m, err := admin.CreateMission(c.Request.Context(), req)
		if err != nil {
			handleError(c, err, "Mission creation")
			return
		}
		respond(c, http.StatusCreated, m)
	}
}

// CreateRewardHandler adds a reward to the shop
func CreateRewardHandler(admin *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RewardInput // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		r, err := admin.CreateReward(c.Request.Context(), req)
		if err != nil {
			handleError(c, err, "Reward creation")
			return
		}
		respond(c, http.StatusCreated, r)
	}
}

// queryTime reads an optional RFC3339 timestamp or YYYY-MM-DD date.
// With endOfDay a bare date resolves to the last microsecond of that day.
func queryTime(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true // No bound
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		fail(c, http.StatusBadRequest, key+" must be an RFC3339 timestamp or a YYYY-MM-DD date", err.Error())
		return nil, false
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Microsecond) // Inclusive upper bound
	}
	return &t, true
}
