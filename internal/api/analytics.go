package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// TrackEventRequest is a client side analytics event
type TrackEventRequest struct {
	EventType  string         `json:"event_type" binding:"required"` // Event name
	Properties map[string]any `json:"properties"`                    // Free form properties
}

// TrackEventHandler stores an event for the caller
func TrackEventHandler(analytics *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req TrackEventRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		event, err := analytics.Track(c.Request.Context(), userID, req.EventType, req.Properties)
		if err != nil {
			handleError(c, err, "Event tracking")
			return
		}
		respond(c, http.StatusCreated, event)
	}
}

// AnalyticsSummaryHandler counts the caller's events by type
func AnalyticsSummaryHandler(analytics *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		days, ok := queryDays(c) // Window length, defaults to 30
		if !ok {
			return
		}
		summary, err := analytics.Summary(c.Request.Context(), userID, days)
		if err != nil {
			handleError(c, err, "Analytics summary")
			return
		}
		respond(c, http.StatusOK, summary)
	}
}
