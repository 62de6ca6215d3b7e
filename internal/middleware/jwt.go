// Package middleware holds the gin middleware of the API.
package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"qic_life/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "userID"

// abort stops the chain with the error envelope
func abort(c *gin.Context, status int, message, errText string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,   // Always false for errors
		"message": message, // Human readable message
		"error":   errText, // Error detail
	})
}

// JWTAuthMiddleware validates JWT tokens and extracts user information
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			abort(c, http.StatusUnauthorized, "Missing or invalid Authorization header", "unauthorized")
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")) // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)                          // Parse the JWT token
		if err != nil || claims.UserID == "" {
			// If parsing fails, abort with unauthorized status
			abort(c, http.StatusUnauthorized, "Invalid or expired token", "unauthorized")
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Next()                        // Proceed to the next handler
	}
}
