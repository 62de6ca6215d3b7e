package api

import (
	"net/http" // HTTP status codes

	"qic_life/internal/service" // Business services

	"github.com/gin-gonic/gin" // Gin web framework
)

// TransactionHistoryHandler returns the caller's coin ledger with pagination
func TransactionHistoryHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		page, ok := queryInt(c, "page") // Page number, defaults to 1
		if !ok {
			return
		}
		size, ok := queryInt(c, "page_size") // Page size, defaults to 20, capped at 100
		if !ok {
			return
		}
		out, err := profiles.Transactions(c.Request.Context(), userID, page, size) // Cached per page
		if err != nil {
			handleError(c, err, "Transaction history")
			return
		}
		respond(c, http.StatusOK, out)
	}
}

// ListRewardsHandler returns the active rewards with affordability for the caller
func ListRewardsHandler(rewards *service.RewardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		list, err := rewards.List(c.Request.Context(), userID)
		if err != nil {
			handleError(c, err, "Reward listing")
			return
		}
		respond(c, http.StatusOK, list)
	}
}

// RedeemRewardHandler spends the caller's coins on a reward
func RedeemRewardHandler(rewards *service.RewardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		rewardID := c.Param("id") // Reward to redeem
		// Debit, stock and voucher happen atomically in the service
		res, err := rewards.Redeem(c.Request.Context(), userID, rewardID)
		if err != nil {
			handleError(c, err, "Redemption")
			return
		}
		respond(c, http.StatusCreated, res)
	}
}

// RedemptionsHandler returns the caller's redemptions, newest first
func RedemptionsHandler(rewards *service.RewardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c) // Get userID from context
		if !ok {
			return
		}
		list, err := rewards.Redemptions(c.Request.Context(), userID)
		if err != nil {
			handleError(c, err, "Redemption listing")
			return
		}
		respond(c, http.StatusOK, list)
	}
}
