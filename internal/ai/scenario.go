package ai

import (
	"context"       // Request scoped context
	"encoding/json" // JSON encoding
	"errors"        // Error inspection
	"fmt"           // String formatting
	"math"          // Rounding
	"sort"          // Sorting
	"strings"       // String helpers

	"qic_life/internal/catalog" // Plan catalog

	"github.com/sirupsen/logrus" // Logging library
	"github.com/tidwall/gjson"   // JSON path queries
)

// Severities
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var severityMultiplier = map[string]float64{
	SeverityLow:    0.5,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

// Simulation validation errors
var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInvalidSeverity = errors.New("severity must be low, medium or high")
)

var scenarioTips = map[string][]string{
	"car_accident": {
		"Photograph the scene and exchange details before moving the vehicles.",
		"Report the accident to the police and your insurer within 24 hours.",
	},
	"medical_emergency": {
		"Keep your policy number and network hospital list on your phone.",
		"Ask the hospital to request pre-authorisation from your insurer.",
	},
	"home_damage": {
		"Stop further damage first, then document everything with photos.",
		"Keep receipts for emergency repairs and temporary accommodation.",
	},
	"travel_disruption": {
		"Get written confirmation of delays or cancellations from the carrier.",
		"Keep receipts for meals and hotels while you wait.",
	},
	"job_loss": {
		"Build an emergency fund covering three to six months of expenses.",
		"Check whether your life policy carries an income protection rider.",
	},
	"critical_illness": {
		"Critical illness benefits pay a lump sum you can use for any cost.",
		"Review the list of covered conditions before you need it.",
	},
}

// SimulationRequest describes the scenario to simulate
type SimulationRequest struct {
	Scenario    string `json:"scenario"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
}

// ScenarioPlan is a plan recommended for a scenario
type ScenarioPlan struct {
	PlanID          string  `json:"plan_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	MonthlyPremium  float64 `json:"monthly_premium"`
	CoverageRatio   float64 `json:"coverage_ratio"`
	Relevance       int     `json:"relevance"`
	Reason          string  `json:"reason"`
	EstimatedPayout float64 `json:"estimated_payout"`
}

// SimulationResult is the merged simulation shown to the user
type SimulationResult struct {
	Scenario                string         `json:"scenario"`
	Severity                string         `json:"severity"`
	Narrative               string         `json:"narrative"`
	EstimatedCost           float64        `json:"estimated_cost"`
	OutOfPocketWithoutCover float64        `json:"out_of_pocket_without_cover"`
	OutOfPocketWithCover    float64        `json:"out_of_pocket_with_cover"`
	RiskLevel               string         `json:"risk_level"`
	Tips                    []string       `json:"tips"`
	RecommendedPlans        []ScenarioPlan `json:"recommended_plans"`
	Source                  string         `json:"source"`
}

// Simulator runs scenario simulations
type Simulator struct {
	provider Provider
	catalog  *catalog.Catalog
}

// NewSimulator builds a simulator over a provider and the plan catalog
func NewSimulator(p Provider, c *catalog.Catalog) *Simulator {
	return &Simulator{provider: p, catalog: c}
}

// Normalize validates the request and applies the default severity
func (s *Simulator) Normalize(req SimulationRequest) (SimulationRequest, error) {
	req.Scenario = strings.ToLower(strings.TrimSpace(req.Scenario))
	req.Severity = strings.ToLower(strings.TrimSpace(req.Severity))
	if req.Severity == "" {
		req.Severity = SeverityMedium
	}
	if _, ok := s.catalog.Scenario(req.Scenario); !ok {
		return req, fmt.Errorf("%w: %q", ErrUnknownScenario, req.Scenario)
	}
	if _, ok := severityMultiplier[req.Severity]; !ok {
		return req, ErrInvalidSeverity
	}
	return req, nil
}

const scenarioSystemPrompt = `You simulate insurance scenarios for the QIC Life app.
Answer only with a JSON object with the keys "narrative" (2-3 sentences),
"estimated_cost" (number, local currency), "risk_level" ("low", "medium" or "high"),
"tips" (array of short strings) and "recommended_plans" (array of objects with
"plan_id" from the catalog, "relevance" 0-100 and "reason").`

// Simulate asks the provider and merges its answer with the catalog.
// req must already be normalized.
func (s *Simulator) Simulate(ctx context.Context, profile Profile, req SimulationRequest) *SimulationResult {
	// Ask the model when one is configured
	if s.provider != nil && s.provider.Enabled() {
		content, err := s.provider.Complete(ctx, scenarioSystemPrompt, s.scenarioPrompt(profile, req))
		if err == nil {
			if res, ok := s.Merge(content, profile, req); ok {
				return res
			}
			logrus.WithField("scenario", req.Scenario).Warn("AI scenario answer unusable, using fallback")
		} else {
			logrus.WithError(err).WithField("scenario", req.Scenario).Warn("AI scenario failed, using fallback")
		}
	}
	res, _ := s.Merge("", profile, req) // Catalog only answer
	return res
}

func (s *Simulator) scenarioPrompt(profile Profile, req SimulationRequest) string {
	profileJSON, _ := json.Marshal(profile)
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s (severity %s)\n", req.Scenario, req.Severity)
	if req.Description != "" {
		fmt.Fprintf(&b, "Details from the user: %s\n", req.Description)
	}
	b.WriteString("User profile: ")
	b.Write(profileJSON)
	b.WriteString("\nCatalog:\n")
	for _, p := range s.catalog.Plans {
		fmt.Fprintf(&b, "- %s (%s, covers %s, coverage %.0f%%)\n", p.ID, p.Category, strings.Join(p.Covers, ","), p.CoverageRatio*100)
	}
	return b.String()
}

// Merge combines a model answer with the catalog, regenerating whatever is missing.
// The bool is false when the answer contributed no field at all; the result is then
// built entirely from fallbacks.
func (s *Simulator) Merge(content string, profile Profile, req SimulationRequest) (*SimulationResult, bool) {
	res := &SimulationResult{
		Scenario: req.Scenario,
		Severity: req.Severity,
		Source:   SourceFallback,
	}
	// Take every field the model answered validly
	if raw := ExtractJSON(content); raw != "" {
		if doc := gjson.Parse(raw); doc.IsObject() {
			res.Narrative = strings.TrimSpace(doc.Get("narrative").String())         // Model narrative
			res.EstimatedCost = math.Round(doc.Get("estimated_cost").Float())        // Model cost estimate
			if risk := strings.ToLower(doc.Get("risk_level").String()); risk != "" { // Only known levels survive
				if _, ok := severityMultiplier[risk]; ok {
					res.RiskLevel = risk
				}
			}
			doc.Get("tips").ForEach(func(_, tip gjson.Result) bool {
				if t := strings.TrimSpace(tip.String()); t != "" {
					res.Tips = append(res.Tips, t)
				}
				return true
			})
			res.RecommendedPlans = s.mergePlans(doc.Get("recommended_plans"), req.Scenario) // Known plan ids only
		}
	}
	usable := res.Narrative != "" || res.EstimatedCost > 0 || res.RiskLevel != "" ||
		len(res.Tips) > 0 || len(res.RecommendedPlans) > 0
	if usable {
		res.Source = SourceAI // At least one field came from the model
	}

	// Regenerate missing fields
	if res.EstimatedCost <= 0 {
		res.EstimatedCost = s.fallbackCost(req)
	}
	if res.RiskLevel == "" {
		res.RiskLevel = fallbackRisk(profile, req)
	}
	if len(res.Tips) == 0 {
		res.Tips = append([]string(nil), scenarioTips[req.Scenario]...)
	}
	if len(res.RecommendedPlans) == 0 {
		res.RecommendedPlans = s.fallbackPlans(req.Scenario)
	}
	if res.Narrative == "" {
		res.Narrative = fallbackNarrative(req, res.EstimatedCost)
	}

	// Payouts from the catalog coverage ratios
	best := 0.0
	for i := range res.RecommendedPlans {
		p := &res.RecommendedPlans[i]
		p.EstimatedPayout = math.Round(res.EstimatedCost * p.CoverageRatio)
		if p.CoverageRatio > best {
			best = p.CoverageRatio
		}
	}
	sortScenarioPlans(res.RecommendedPlans)
	res.OutOfPocketWithoutCover = res.EstimatedCost                       // Uninsured pays everything
	res.OutOfPocketWithCover = math.Round(res.EstimatedCost * (1 - best)) // Best plan absorbs its share
	return res, usable
}

func (s *Simulator) mergePlans(items gjson.Result, scenario string) []ScenarioPlan {
	var plans []ScenarioPlan
	seen := map[string]bool{}
	items.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("plan_id").String()
		plan, ok := s.catalog.Plan(id)
		if !ok || seen[id] {
			return true
		}
		seen[id] = true
		sp := toScenarioPlan(plan, scenario)
		if rel := item.Get("relevance"); rel.Exists() {
			sp.Relevance = clampRelevance(int(rel.Int()))
		}
		if reason := strings.TrimSpace(item.Get("reason").String()); reason != "" {
			sp.Reason = reason
		}
		plans = append(plans, sp)
		return true
	})
	return plans
}

func (s *Simulator) fallbackPlans(scenario string) []ScenarioPlan {
	var plans []ScenarioPlan
	for _, p := range s.catalog.PlansCovering(scenario) {
		plans = append(plans, toScenarioPlan(p, scenario))
	}
	return plans
}

func toScenarioPlan(p catalog.Plan, scenario string) ScenarioPlan {
	return ScenarioPlan{
		PlanID:         p.ID,
		Name:           p.Name,
		Category:       p.Category,
		MonthlyPremium: p.MonthlyPremium,
		CoverageRatio:  p.CoverageRatio,
		Relevance:      clampRelevance(int(math.Round(p.CoverageRatio * 100))),
		Reason:         fmt.Sprintf("Covers %s up to %.0f%% of the cost.", strings.ReplaceAll(scenario, "_", " "), p.CoverageRatio*100),
	}
}

func (s *Simulator) fallbackCost(req SimulationRequest) float64 {
	sc, _ := s.catalog.Scenario(req.Scenario)
	return math.Round(sc.BaseCost * severityMultiplier[req.Severity])
}

// fallbackRisk follows severity; medium becomes high when the user has dependents
func fallbackRisk(profile Profile, req SimulationRequest) string {
	if req.Severity == SeverityMedium && profile.Dependents > 0 {
		return SeverityHigh
	}
	return req.Severity
}

func fallbackNarrative(req SimulationRequest, cost float64) string {
	return fmt.Sprintf("A %s severity %s could cost you around %.0f. Without cover you would pay all of it yourself; the plans below show how much insurance would absorb.",
		req.Severity, strings.ReplaceAll(req.Scenario, "_", " "), cost)
}

func clampRelevance(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// sortScenarioPlans orders by relevance desc, premium asc, then id
func sortScenarioPlans(plans []ScenarioPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Relevance != plans[j].Relevance {
			return plans[i].Relevance > plans[j].Relevance
		}
		if plans[i].MonthlyPremium != plans[j].MonthlyPremium {
			return plans[i].MonthlyPremium < plans[j].MonthlyPremium
		}
		return plans[i].PlanID < plans[j].PlanID
	})
}
