package catalog

import (
	"errors" // Error inspection
	"fmt"    // String formatting
	"math"   // Rounding
)

// Bundle errors
var (
	ErrBundleTooSmall = errors.New("a bundle needs at least 2 distinct plans")
	ErrDuplicatePlan  = errors.New("duplicate plan in bundle")
)

// UnknownPlanError reports a plan id missing from the catalog
type UnknownPlanError struct {
	ID string
}

func (e *UnknownPlanError) Error() string {
	return fmt.Sprintf("unknown plan %q", e.ID)
}

// BundleQuote is the priced bundle
type BundleQuote struct {
	Plans           []Plan  `json:"plans"`
	Categories      int     `json:"categories"`
	MonthlyTotal    float64 `json:"monthly_total"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	DiscountedTotal float64 `json:"discounted_total"`
}

// DiscountFor returns the discount percent for a number of distinct categories.
// Counts above the largest key use the largest key's percent.
func (c *Catalog) DiscountFor(categories int) float64 {
	if categories <= 0 {
		return 0
	}
	if pct, ok := c.BundleDiscounts[categories]; ok {
		return pct
	}
	best, bestKey := 0.0, 0
	for k, pct := range c.BundleDiscounts {
		if k <= categories && k > bestKey {
			best, bestKey = pct, k
		}
	}
	return best
}

// QuoteBundle prices a set of plans with the category discount applied
func (c *Catalog) QuoteBundle(ids []string) (*BundleQuote, error) {
	seen := make(map[string]bool, len(ids))
	categories := make(map[string]bool)
	q := &BundleQuote{}
	for _, id := range ids {
		if seen[id] {
			return nil, ErrDuplicatePlan
		}
		seen[id] = true
		p, ok := c.Plan(id)
		if !ok {
			return nil, &UnknownPlanError{ID: id}
		}
		q.Plans = append(q.Plans, p)
		categories[p.Category] = true
		q.MonthlyTotal += p.MonthlyPremium
	}
	if len(q.Plans) < 2 {
		return nil, ErrBundleTooSmall
	}
	q.Categories = len(categories)
	q.DiscountPercent = c.DiscountFor(q.Categories)
	q.MonthlyTotal = roundCents(q.MonthlyTotal)
	q.DiscountAmount = roundCents(q.MonthlyTotal * q.DiscountPercent / 100)
	q.DiscountedTotal = roundCents(q.MonthlyTotal - q.DiscountAmount)
	return q, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
