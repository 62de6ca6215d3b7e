package ai

import (
	"context"       // Request scoped context
	"encoding/json" // JSON encoding
	"fmt"           // String formatting
	"sort"          // Sorting
	"strings"       // String helpers

	"qic_life/internal/catalog" // Plan catalog

	"github.com/sirupsen/logrus" // Logging library
	"github.com/tidwall/gjson"   // JSON path queries
)

// Result sources
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// maxRecommendations caps the list returned to the user
const maxRecommendations = 3

// Recommendation is one suggested plan
type Recommendation struct {
	PlanID         string  `json:"plan_id"`         // Catalog plan ID
	Name           string  `json:"name"`            // Plan name
	Category       string  `json:"category"`        // Plan category
	MonthlyPremium float64 `json:"monthly_premium"` // Premium per month
	Reason         string  `json:"reason"`          // Why the plan fits
	Priority       int     `json:"priority"`        // 1 is most important
}

// Recommender produces plan recommendations
type Recommender struct {
	provider Provider
	catalog  *catalog.Catalog
}

// NewRecommender builds a recommender over a provider and the plan catalog
func NewRecommender(p Provider, c *catalog.Catalog) *Recommender {
	return &Recommender{provider: p, catalog: c}
}

const recommendationSystemPrompt = `You are an insurance advisor for the QIC Life app.
Answer only with a JSON array. Each element has "plan_id" (one of the catalog ids),
"reason" (one sentence addressed to the user) and "priority" (1 is most important).
Recommend at most 3 plans.`

// Recommend asks the provider for recommendations and falls back to catalog heuristics.
// The returned source tells whether the provider's answer was used.
func (r *Recommender) Recommend(ctx context.Context, profile Profile, focus string) ([]Recommendation, string) {
	// Ask the model when one is configured
	if r.provider != nil && r.provider.Enabled() {
		content, err := r.provider.Complete(ctx, recommendationSystemPrompt, r.recommendationPrompt(profile, focus))
		if err == nil {
			if recs := ParseRecommendations(content, r.catalog); len(recs) > 0 {
				return recs, SourceAI
			}
			logrus.Warn("AI recommendation answer had no usable plans, using fallback")
		} else {
			logrus.WithError(err).Warn("AI recommendation failed, using fallback")
		}
	}
	return FallbackRecommendations(profile, focus, r.catalog), SourceFallback // Rule based answer
}

func (r *Recommender) recommendationPrompt(profile Profile, focus string) string {
	profileJSON, _ := json.Marshal(profile)
	var b strings.Builder
	b.WriteString("User profile: ")
	b.Write(profileJSON)
	b.WriteString("\nCatalog:\n")
	for _, p := range r.catalog.Plans {
		fmt.Fprintf(&b, "- %s (%s, %.2f/month): %s\n", p.ID, p.Category, p.MonthlyPremium, strings.Join(p.Highlights, "; "))
	}
	if focus != "" {
		fmt.Fprintf(&b, "The user is most interested in %s cover.\n", focus)
	}
	return b.String()
}

// ParseRecommendations reads the model answer, keeping only catalog plans.
// It accepts a bare array or an object with a "recommendations" array.
func ParseRecommendations(content string, c *catalog.Catalog) []Recommendation {
	doc := ExtractJSON(content)
	if doc == "" {
		return nil
	}
	items := gjson.Parse(doc)
	if items.IsObject() {
		items = items.Get("recommendations") // Wrapped array
	}
	if !items.IsArray() {
		return nil
	}
	var recs []Recommendation
	seen := map[string]bool{}
	items.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("plan_id").String()
		if id == "" {
			id = item.Get("id").String() // Some models shorten the key
		}
		// Drop unknown and repeated plans
		plan, ok := c.Plan(id)
		if !ok || seen[id] {
			return true
		}
		seen[id] = true
		// Plan facts come from the catalog, never from the model
		rec := Recommendation{
			PlanID:         plan.ID,
			Name:           plan.Name,
			Category:       plan.Category,
			MonthlyPremium: plan.MonthlyPremium,
			Reason:         strings.TrimSpace(item.Get("reason").String()),
			Priority:       int(item.Get("priority").Int()),
		}
		if rec.Reason == "" {
			rec.Reason = defaultReason(plan)
		}
		if rec.Priority <= 0 {
			rec.Priority = len(recs) + 1
		}
		recs = append(recs, rec)
		return true
	})
	sortRecommendations(recs)
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// FallbackRecommendations scores catalog categories against the profile
func FallbackRecommendations(profile Profile, focus string, c *catalog.Catalog) []Recommendation {
	// Everyone gets a base score for health and motor
	scores := map[string]int{"health": 1, "motor": 1}
	reasons := map[string]string{
		"health": "Medical costs are the most common unplanned expense.",
		"motor":  "Driving is the everyday risk most people carry.",
	}
	if profile.Age >= 40 {
		scores["health"] += 2
		reasons["health"] = "Health cover matters more as medical needs grow with age."
	}
	if profile.tracksHealth() {
		scores["health"]++
	}
	if profile.Dependents > 0 {
		scores["life"] += 3
		reasons["life"] = fmt.Sprintf("You have %d dependent(s) relying on your income.", profile.Dependents)
		scores["home"]++
	}
	if profile.Age >= 30 {
		scores["life"]++
		if reasons["life"] == "" {
			reasons["life"] = "Locking in life cover early keeps premiums low."
		}
	}
	if profile.occupationHas("driver", "courier", "delivery", "sales") {
		scores["motor"] += 2
		reasons["motor"] = "Your work keeps you on the road."
	}
	if profile.AnnualIncome >= 50000 {
		scores["home"]++
		if reasons["home"] == "" {
			reasons["home"] = "Protect the home and belongings you have built up."
		}
	}
	if profile.hasIntegration("calendar") || profile.occupationHas("consult", "pilot", "travel") {
		scores["travel"] += 2
		reasons["travel"] = "Frequent trips make travel disruption likely."
	}
	// An explicit focus outweighs the profile
	if focus != "" {
		scores[focus] += 3
		if reasons[focus] == "" {
			reasons[focus] = fmt.Sprintf("You asked about %s cover.", focus)
		}
	}

	type scored struct {
		category string
		score    int
	}
	// Rank categories that have plans
	var ranked []scored
	for cat, s := range scores {
		if s > 0 && len(c.PlansByCategory(cat)) > 0 {
			ranked = append(ranked, scored{cat, s})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].category < ranked[j].category
	})

	var recs []Recommendation
	for i, r := range ranked {
		if i == maxRecommendations {
			break
		}
		plan := pickPlan(c.PlansByCategory(r.category), profile)
		reason := reasons[r.category]
		if reason == "" {
			reason = defaultReason(plan)
		}
		recs = append(recs, Recommendation{
			PlanID:         plan.ID,
			Name:           plan.Name,
			Category:       plan.Category,
			MonthlyPremium: plan.MonthlyPremium,
			Reason:         reason,
			Priority:       i + 1,
		})
	}
	return recs
}

// pickPlan takes the broadest cover for higher incomes and the cheapest otherwise
func pickPlan(plans []catalog.Plan, profile Profile) catalog.Plan {
	best := plans[0]
	for _, p := range plans[1:] {
		if profile.AnnualIncome >= 60000 {
			if p.CoverageRatio > best.CoverageRatio {
				best = p
			}
		} else if p.MonthlyPremium < best.MonthlyPremium {
			best = p
		}
	}
	return best
}

func defaultReason(p catalog.Plan) string {
	if len(p.Highlights) > 0 {
		return fmt.Sprintf("%s includes %s.", p.Name, strings.ToLower(p.Highlights[0]))
	}
	return fmt.Sprintf("%s fits your profile.", p.Name)
}

func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority < recs[j].Priority
		}
		if recs[i].MonthlyPremium != recs[j].MonthlyPremium {
			return recs[i].MonthlyPremium < recs[j].MonthlyPremium
		}
		return recs[i].PlanID < recs[j].PlanID
	})
}
