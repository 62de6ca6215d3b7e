package ai

import (
	"context"
	"testing"

	"qic_life/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	s := NewSimulator(nil, catalog.MustDefault())

	req, err := s.Normalize(SimulationRequest{Scenario: " Car_Accident "})
	require.NoError(t, err)
	assert.Equal(t, "car_accident", req.Scenario)
	assert.Equal(t, SeverityMedium, req.Severity)

	_, err = s.Normalize(SimulationRequest{Scenario: "alien_invasion"})
	assert.ErrorIs(t, err, ErrUnknownScenario)

	_, err = s.Normalize(SimulationRequest{Scenario: "job_loss", Severity: "extreme"})
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestMergeFullAnswer(t *testing.T) {
	s := NewSimulator(nil, catalog.MustDefault())
	content := `{
		"narrative": "A hospital stay after a fall.",
		"estimated_cost": 10000,
		"risk_level": "HIGH",
		"tips": ["Keep receipts"],
		"recommended_plans": [
			{"plan_id": "health-essential", "relevance": 70, "reason": "Budget cover"},
			{"plan_id": "health-plus", "relevance": 95},
			{"plan_id": "unknown", "relevance": 100}
		]
	}`
	res, ok := s.Merge(content, Profile{}, SimulationRequest{Scenario: "medical_emergency", Severity: "medium"})
	require.True(t, ok)
	assert.Equal(t, SourceAI, res.Source)
	assert.Equal(t, "A hospital stay after a fall.", res.Narrative)
	assert.Equal(t, 10000.0, res.EstimatedCost)
	assert.Equal(t, "high", res.RiskLevel)
	assert.Equal(t, []string{"Keep receipts"}, res.Tips)

	require.Len(t, res.RecommendedPlans, 2)
	assert.Equal(t, "health-plus", res.RecommendedPlans[0].PlanID)
	assert.Equal(t, 8500.0, res.RecommendedPlans[0].EstimatedPayout)
	assert.Contains(t, res.RecommendedPlans[0].Reason, "Covers medical emergency")
	assert.Equal(t, "Budget cover", res.RecommendedPlans[1].Reason)

	assert.Equal(t, 10000.0, res.OutOfPocketWithoutCover)
	assert.Equal(t, 1500.0, res.OutOfPocketWithCover)
}

func TestMergeRegeneratesMissingFields(t *testing.T) {
	s := NewSimulator(nil, catalog.MustDefault())
	res, ok := s.Merge(`{"narrative": ""}`, Profile{Dependents: 1}, SimulationRequest{Scenario: "car_accident", Severity: "medium"})
	require.False(t, ok) // Nothing in the answer was usable
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 6000.0, res.EstimatedCost)
	assert.Equal(t, "high", res.RiskLevel) // medium with dependents
	assert.NotEmpty(t, res.Narrative)
	assert.Len(t, res.Tips, 2)

	require.Len(t, res.RecommendedPlans, 2)
	assert.Equal(t, "motor-comprehensive", res.RecommendedPlans[0].PlanID)
	assert.Equal(t, 90, res.RecommendedPlans[0].Relevance)
	assert.Equal(t, 600.0, res.OutOfPocketWithCover)
}

func TestMergeKeepsPartialAnswer(t *testing.T) {
	s := NewSimulator(nil, catalog.MustDefault())
	res, ok := s.Merge(`{"tips": ["Photograph the damage"], "risk_level": "extreme"}`, Profile{}, SimulationRequest{Scenario: "car_accident", Severity: "medium"})
	require.True(t, ok)
	assert.Equal(t, SourceAI, res.Source)
	assert.Equal(t, []string{"Photograph the damage"}, res.Tips)
	assert.Equal(t, "medium", res.RiskLevel) // Unknown level replaced
	assert.Equal(t, 6000.0, res.EstimatedCost)
	assert.NotEmpty(t, res.Narrative)
}

func TestMergeEmptyObjectIsUnusable(t *testing.T) {
	s := NewSimulator(nil, catalog.MustDefault())
	res, ok := s.Merge("```json\n{}\n```", Profile{}, SimulationRequest{Scenario: "job_loss", Severity: "low"})
	assert.False(t, ok)
	assert.Equal(t, SourceFallback, res.Source)
	assert.NotEmpty(t, res.RecommendedPlans)
}

func TestMergeSortsTiesByPremium(t *testing.T) {
	s := NewSimulator(nil, catalog.MustDefault())
	content := `{"recommended_plans":[
		{"plan_id":"life-protect","relevance":80},
		{"plan_id":"health-plus","relevance":80},
		{"plan_id":"health-essential","relevance":80}
	]}`
	res, _ := s.Merge(content, Profile{}, SimulationRequest{Scenario: "critical_illness", Severity: "high"})
	require.Len(t, res.RecommendedPlans, 3)
	assert.Equal(t, "health-essential", res.RecommendedPlans[0].PlanID)
	assert.Equal(t, "life-protect", res.RecommendedPlans[1].PlanID)
	assert.Equal(t, "health-plus", res.RecommendedPlans[2].PlanID)
	assert.Equal(t, 80000.0, res.EstimatedCost)
}

func TestSimulateFallsBackOnGarbage(t *testing.T) {
	stub := &StubProvider{Answer: "sorry, I can't"}
	s := NewSimulator(stub, catalog.MustDefault())
	res := s.Simulate(context.Background(), Profile{}, SimulationRequest{Scenario: "home_damage", Severity: "low"})
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 7500.0, res.EstimatedCost)
	assert.Equal(t, "low", res.RiskLevel)
	assert.Equal(t, 1, stub.Calls)
}
