package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // Query normalization

	"qic_life/internal/catalog" // Plan catalog

	"github.com/gin-gonic/gin" // Gin web framework
)

// BundleRequest lists the plans to price together
type BundleRequest struct {
	PlanIDs []string `json:"plan_ids" binding:"required"` // Plan ids must be provided
}

// ListPlansHandler returns the catalog, optionally filtered by category
func ListPlansHandler(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := strings.ToLower(strings.TrimSpace(c.Query("category"))) // Optional filter
		if category == "" {
			respond(c, http.StatusOK, cat.Plans)
			return
		}
		plans := cat.PlansByCategory(category)
		if plans == nil {
			plans = []catalog.Plan{} // Unknown category lists nothing
		}
		respond(c, http.StatusOK, plans)
	}
}

// BundleQuoteHandler prices a bundle with the category discount
func BundleQuoteHandler(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BundleRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		quote, err := cat.QuoteBundle(req.PlanIDs)
		if err != nil {
			var unknown *catalog.UnknownPlanError
			switch {
			case errors.As(err, &unknown):
				fail(c, http.StatusNotFound, err.Error(), "not found")
			case errors.Is(err, catalog.ErrBundleTooSmall), errors.Is(err, catalog.ErrDuplicatePlan):
				fail(c, http.StatusBadRequest, err.Error(), "validation failed")
			default:
				handleError(c, err, "Bundle quote")
			}
			return
		}
		respond(c, http.StatusOK, quote)
	}
}
