package ai

import "strings" // String helpers

// Profile is the slice of a user's data the models and heuristics see
type Profile struct {
	Age          int      `json:"age,omitempty"`           // Age in years
	Occupation   string   `json:"occupation,omitempty"`    // Free text occupation
	Dependents   int      `json:"dependents"`              // People relying on the user
	AnnualIncome float64  `json:"annual_income,omitempty"` // Yearly income
	City         string   `json:"city,omitempty"`          // Home city
	Integrations []string `json:"integrations,omitempty"`  // Connected apps
	LifeScore    int      `json:"lifescore"`               // Current LifeScore
	Level        int      `json:"level"`                   // Current level
}

var healthTrackers = map[string]bool{
	"google_fit":     true,
	"apple_health":   true,
	"fitbit":         true,
	"garmin":         true,
	"strava":         true,
	"samsung_health": true,
}

func (p Profile) hasIntegration(id string) bool {
	for _, i := range p.Integrations {
		if i == id {
			return true
		}
	}
	return false
}

func (p Profile) tracksHealth() bool {
	for _, i := range p.Integrations {
		if healthTrackers[i] {
			return true
		}
	}
	return false
}

func (p Profile) occupationHas(words ...string) bool {
	occ := strings.ToLower(p.Occupation)
	for _, w := range words {
		if strings.Contains(occ, w) {
			return true
		}
	}
	return false
}
