package middleware

import (
	"net/http" // HTTP status codes

	"qic_life/internal/domain"     // Importing domain models
	"qic_life/internal/repository" // User lookups

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	users := repository.NewUserRepo(db) // Repository over the shared handle
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey) // Get userID from context
		// Check if userID exists in context
		if userID == "" {
			// If not, abort with unauthorized status
			abort(c, http.StatusUnauthorized, "Unauthorized", "unauthorized")
			return
		}
		user, err := users.FindByID(c.Request.Context(), userID) // Fetch user from database
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("Admin role lookup failed")
			abort(c, http.StatusInternalServerError, "Internal server error", err.Error())
			return
		}
		// Check if user exists and is admin
		if user == nil || user.Role != domain.RoleAdmin {
			// If not admin, abort with forbidden status
			abort(c, http.StatusForbidden, "Admin access required", "forbidden")
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
