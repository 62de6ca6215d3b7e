// Package api holds the gin handlers and the router of the QIC Life API.
package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"qic_life/internal/middleware" // Context keys
	"qic_life/internal/service"    // Business errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respond writes the success envelope
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true, // Always true for successes
		"data":    data, // Payload
	})
}

// fail writes the error envelope
func fail(c *gin.Context, status int, message, errText string) {
	c.JSON(status, gin.H{
		"success": false,   // Always false for errors
		"message": message, // Human readable message
		"error":   errText, // Error detail
	})
}

// statusFor maps a service error kind to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInsufficientCoins):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrLocked), errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes the envelope for err; action names the failed operation in the logs
func handleError(c *gin.Context, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"user_id": c.GetString(middleware.UserIDKey), // Caller, if authenticated
			"path":    c.FullPath(),                      // Route template
			"error":   err.Error(),                       // Error message
		}).Error(action + " failed")
		fail(c, status, "Internal server error", err.Error())
		return
	}
	var kind error = err
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		kind = svcErr.Kind // Short machine readable reason
	} else if errors.Is(err, service.ErrLocked) {
		kind = service.ErrLocked
	}
	fail(c, status, err.Error(), kind.Error())
}

// bindJSON binds the body into dest and writes a 400 when it cannot
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err.Error())
		return false
	}
	return true
}

// queryInt reads an optional integer query parameter, writing a 400 when it is malformed
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true // Absent, let the service pick its default
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, key+" must be an integer", err.Error())
		return 0, false
	}
	return v, true
}

// queryDays reads the optional days window; an explicit value below 1 is rejected
func queryDays(c *gin.Context) (int, bool) {
	days, ok := queryInt(c, "days")
	if !ok {
		return 0, false
	}
	if c.Query("days") != "" && days < 1 {
		fail(c, http.StatusBadRequest, "days must be at least 1", "validation failed")
		return 0, false
	}
	return days, true // 0 means absent
}

// currentUser returns the authenticated user id, writing a 401 when missing
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.UserIDKey) // Set by the JWT middleware
	if userID == "" {
		fail(c, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return "", false
	}
	return userID, true
}
