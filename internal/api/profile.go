package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// GetProfileHandler returns the caller's profile
func GetProfileHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		p, err := profiles.Get(c.Request.Context(), userID) // Served from cache when possible
		if err != nil {
			handleError(c, err, "Profile lookup")
			return
		}
		respond(c, http.StatusOK, p)
	}
}

// UpdateProfileHandler edits the caller's profile fields
func UpdateProfileHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req service.ProfileUpdate // Omitted fields stay unchanged
		if !bindJSON(c, &req) {
			return
		}
		p, err := profiles.Update(c.Request.Context(), userID, req)
		if err != nil {
			handleError(c, err, "Profile update")
			return
		}
		respond(c, http.StatusOK, p)
	}
}

// OnboardingHandler completes onboarding and pays the bonus
func OnboardingHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req service.OnboardingInput // Integrations and profile details
		if !bindJSON(c, &req) {
			return
		}
		res, err := profiles.Onboard(c.Request.Context(), userID, req)
		if err != nil {
			handleError(c, err, "Onboarding")
			return
		}
		respond(c, http.StatusOK, res)
	}
}

// StatsHandler returns the caller's progress totals
func StatsHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		stats, err := profiles.Stats(c.Request.Context(), userID)
		if err != nil {
			handleError(c, err, "Stats lookup")
			return
		}
		respond(c, http.StatusOK, stats)
	}
}

// LeaderboardHandler returns the top users
func LeaderboardHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := queryInt(c, "limit") // Zero means the default size
		if !ok {
			return
		}
		entries, err := profiles.Leaderboard(c.Request.Context(), limit)
		if err != nil {
			handleError(c, err, "Leaderboard lookup")
			return
		}
		respond(c, http.StatusOK, entries)
	}
}
