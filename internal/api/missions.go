package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// ProgressRequest sets the progress of an active mission
type ProgressRequest struct {
	Progress *int `json:"progress" binding:"required"` // 0 to 100
}

// ListMissionsHandler returns the missions with the caller's status on each
func ListMissionsHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		filter := service.MissionFilter{
			Status:   c.Query("status"),   // Optional status filter
			Category: c.Query("category"), // Optional category filter
		}
		list, err := missions.List(c.Request.Context(), userID, filter)
		if err != nil {
			handleError(c, err, "Mission listing")
			return
		}
		respond(c, http.StatusOK, list)
	}
}

// GetMissionHandler returns one mission with the caller's status
func GetMissionHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		view, err := missions.Get(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			handleError(c, err, "Mission lookup")
			return
		}
		respond(c, http.StatusOK, view)
	}
}

// ActiveMissionsHandler returns the missions the caller is working on
func ActiveMissionsHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		list, err := missions.Active(c.Request.Context(), userID)
		if err != nil {
			handleError(c, err, "Active mission listing")
			return
		}
		respond(c, http.StatusOK, list)
	}
}

// StartMissionHandler moves a mission to active
func StartMissionHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		view, err := missions.Start(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			handleError(c, err, "Mission start")
			return
		}
		respond(c, http.StatusOK, view)
	}
}

// ProgressMissionHandler records progress on an active mission
func ProgressMissionHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req ProgressRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		view, err := missions.UpdateProgress(c.Request.Context(), userID, c.Param("id"), *req.Progress)
		if err != nil {
			handleError(c, err, "Mission progress")
			return
		}
		respond(c, http.StatusOK, view)
	}
}

// CompleteMissionHandler completes an active mission and pays its rewards
func CompleteMissionHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		res, err := missions.Complete(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			handleError(c, err, "Mission completion")
			return
		}
		respond(c, http.StatusOK, res) // Deltas and new totals
	}
}

// AbandonMissionHandler gives up an active mission
func AbandonMissionHandler(missions *service.MissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		view, err := missions.Abandon(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			handleError(c, err, "Mission abandon")
			return
		}
		respond(c, http.StatusOK, view)
	}
}
