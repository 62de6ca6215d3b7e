package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// ApplyReferralRequest names the referrer's code
type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required"` // Referral code must be provided
}

// ReferralOverviewHandler returns the caller's code, referrals and totals
func ReferralOverviewHandler(referrals *service.ReferralService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		out, err := referrals.Overview(c.Request.Context(), userID)
		if err != nil {
			handleError(c, err, "Referral overview")
			return
		}
		respond(c, http.StatusOK, out)
	}
}

// ApplyReferralHandler links the caller to a referrer
func ApplyReferralHandler(referrals *service.ReferralService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		var req ApplyReferralRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		ref, err := referrals.Apply(c.Request.Context(), userID, req.Code)
		if err != nil {
			handleError(c, err, "Referral apply")
			return
		}
		respond(c, http.StatusCreated, ref) // Pending, or completed when already onboarded
	}
}
