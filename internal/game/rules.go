package game

// Economy constants
const (
	SignupBonusCoins int64 = 100

	OnboardingBonusCoins int64 = 100
	OnboardingBonusXP    int64 = 50

	ReferrerBonusCoins int64 = 200
	ReferrerBonusXP    int64 = 100
	ReferredBonusCoins int64 = 100

	AIRecommendationCost int64 = 20
	AIScenarioCost       int64 = 30
)

// RequiredIntegrations is the exact number of integrations chosen during onboarding
const RequiredIntegrations = 3

// AllowedIntegrations lists the integrations a user can connect
var AllowedIntegrations = []string{
	"google_fit",
	"apple_health",
	"fitbit",
	"garmin",
	"strava",
	"samsung_health",
	"open_banking",
	"calendar",
}

// IsAllowedIntegration reports whether id is a known integration
func IsAllowedIntegration(id string) bool {
	for _, a := range AllowedIntegrations {
		if a == id {
			return true
		}
	}
	return false
}
