package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/ai"      // Simulation request
	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// RecommendationRequest optionally narrows recommendations to one category
type RecommendationRequest struct {
	Focus string `json:"focus"` // Plan category, empty for all
}

// RecommendationsHandler sells the caller plan recommendations
func RecommendationsHandler(svc *service.AIService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req RecommendationRequest // An empty body is allowed
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		res, err := svc.Recommend(c.Request.Context(), userID, req.Focus)
		if err != nil {
			handleError(c, err, "AI recommendation")
			return
		}
		respond(c, http.StatusOK, res)
	}
}

// SimulateHandler sells the caller a life event simulation
func SimulateHandler(svc *service.AIService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req ai.SimulationRequest // Scenario, description and severity
		if !bindJSON(c, &req) {
			return
		}
		res, err := svc.Simulate(c.Request.Context(), userID, req)
		if err != nil {
			handleError(c, err, "Scenario simulation")
			return
		}
		respond(c, http.StatusOK, res)
	}
}
