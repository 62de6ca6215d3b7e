package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the sign-up body
type RegisterRequest struct {
	Email        string `json:"email" binding:"required"`    // Email must be provided
	Password     string `json:"password" binding:"required"` // Password must be provided
	Name         string `json:"name"`                        // Display name, defaults to the email local part
	ReferralCode string `json:"referral_code"`               // Optional referrer code
}

// LoginRequest is the sign-in body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// RegisterHandler creates an account and returns a token for it
func RegisterHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		// Validation, uniqueness and the referral code are checked by the service
		res, err := auth.Register(c.Request.Context(), service.RegisterInput{
			Email:        req.Email,
			Password:     req.Password,
			Name:         req.Name,
			ReferralCode: req.ReferralCode,
		})
		if err != nil {
			handleError(c, err, "Registration")
			return
		}
		respond(c, http.StatusCreated, res) // Token and user
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		res, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			// Unknown email and wrong password look the same
			handleError(c, err, "Login")
			return
		}
		respond(c, http.StatusOK, res) // Token and user
	}
}
