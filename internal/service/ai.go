package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"strings" // String helpers

	"qic_life/internal/ai"         // AI layer
	"qic_life/internal/catalog"    // Plan catalog
	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/game"       // Game rules
	"qic_life/internal/metrics"    // Prometheus collectors
	"qic_life/internal/repository" // Data access

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// AIService charges coins for the AI features and refunds them when only the fallback answered
type AIService struct {
	db          *gorm.DB          // Database handle
	rdb         *redis.Client     // Cache, nil when disabled
	catalog     *catalog.Catalog  // Plan and scenario catalog
	provider    ai.Provider       // Model client, may be disabled
	recommender *ai.Recommender   // Plan recommendations
	simulator   *ai.Simulator     // Scenario simulations
	analytics   *AnalyticsService // Server side events
	metrics     *metrics.Metrics  // AI answer counters
}

// RecommendationResult is the paid recommendation answer
type RecommendationResult struct {
	Recommendations []ai.Recommendation `json:"recommendations"`
	Source          string              `json:"source"`      // ai or fallback
	CoinsSpent      int64               `json:"coins_spent"` // 0 after a refund
	Balance         int64               `json:"balance"`     // Coins left
}

// SimulationOutcome is the paid simulation answer
type SimulationOutcome struct {
	*ai.SimulationResult
	CoinsSpent int64 `json:"coins_spent"` // 0 after a refund
	Balance    int64 `json:"balance"`     // Coins left
}

// Enabled reports whether a provider is configured
func (s *AIService) Enabled() bool {
	return s.provider != nil && s.provider.Enabled()
}

// Recommend charges the recommendation cost and suggests plans for the user
func (s *AIService) Recommend(ctx context.Context, userID, focus string) (*RecommendationResult, error) {
	// Validate focus category
	focus = strings.ToLower(strings.TrimSpace(focus))
	if focus != "" && len(s.catalog.PlansByCategory(focus)) == 0 {
		return nil, invalid("unknown focus %q", focus)
	}

	// Charge before calling the model
	user, balance, err := s.charge(ctx, userID, game.AIRecommendationCost, domain.TxAIRecommendation, focus)
	if err != nil {
		return nil, err
	}

	recs, source := s.recommender.Recommend(ctx, aiProfile(user), focus) // Never fails, falls back to rules
	s.metrics.AIAnswer("recommendation", source)

	// Refund when only the rule based fallback answered
	spent := game.AIRecommendationCost
	if source == ai.SourceFallback {
		if balance, err = s.refund(ctx, userID, spent, domain.TxAIRecommendation); err != nil {
			return nil, err
		}
		spent = 0
	}
	invalidateUsers(ctx, s.rdb, userID) // Balance and ledger changed

	// Log served recommendation
	logrus.WithFields(logrus.Fields{
		"user_id": userID,    // User ID
		"source":  source,    // ai or fallback
		"coins":   spent,     // Coins kept
		"count":   len(recs), // Plans suggested
	}).Info("AI recommendation served")
	s.analytics.Record(ctx, userID, EventAIRecommendation, map[string]any{"source": source, "focus": focus})
	if recs == nil {
		recs = []ai.Recommendation{} // Encode as [] rather than null
	}
	return &RecommendationResult{Recommendations: recs, Source: source, CoinsSpent: spent, Balance: balance}, nil
}

// Simulate charges the simulation cost and runs a scenario for the user
func (s *AIService) Simulate(ctx context.Context, userID string, req ai.SimulationRequest) (*SimulationOutcome, error) {
	// Validate scenario and severity
	req, err := s.simulator.Normalize(req)
	if err != nil {
		if errors.Is(err, ai.ErrUnknownScenario) {
			return nil, invalid("scenario must be one of %s", strings.Join(s.catalog.ScenarioNames(), ", "))
		}
		return nil, invalid("%s", err.Error())
	}
	if len(req.Description) > 1000 {
		return nil, invalid("description must be at most 1000 characters")
	}

	// Charge before calling the model
	user, balance, err := s.charge(ctx, userID, game.AIScenarioCost, domain.TxAIScenario, req.Scenario)
	if err != nil {
		return nil, err
	}

	res := s.simulator.Simulate(ctx, aiProfile(user), req) // Unusable answers come back as fallback
	s.metrics.AIAnswer("simulation", res.Source)

	// Refund when only the fallback answered
	spent := game.AIScenarioCost
	if res.Source == ai.SourceFallback {
		if balance, err = s.refund(ctx, userID, spent, domain.TxAIScenario); err != nil {
			return nil, err
		}
		spent = 0
	}
	invalidateUsers(ctx, s.rdb, userID) // Balance and ledger changed

	// Log simulation
	logrus.WithFields(logrus.Fields{
		"user_id":  userID,       // User ID
		"scenario": req.Scenario, // Scenario name
		"severity": req.Severity, // Severity level
		"source":   res.Source,   // ai or fallback
		"coins":    spent,        // Coins kept
	}).Info("Scenario simulated")
	s.analytics.Record(ctx, userID, EventScenarioSimulated, map[string]any{
		"scenario": req.Scenario,
		"severity": req.Severity,
		"source":   res.Source,
	})
	return &SimulationOutcome{SimulationResult: res, CoinsSpent: spent, Balance: balance}, nil
}

// charge debits cost and returns the user as it was before the call
func (s *AIService) charge(ctx context.Context, userID string, cost int64, txType, reference string) (*domain.User, int64, error) {
	var (
		user    *domain.User // Profile handed to the model
		balance int64        // Balance after the debit
	)
	// Atomic charge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = repository.NewUserRepo(tx).FindByID(ctx, userID); err != nil {
			return err // Return error to rollback
		}
		if user == nil {
			return notFound("user")
		}
		// Debit only if the balance covers the cost
		balance, err = repository.NewLedgerRepo(tx).Debit(ctx, userID, cost, txType, reference)
		if errors.Is(err, repository.ErrInsufficientCoins) {
			return newError(ErrInsufficientCoins, "you need %d coins for this feature", cost)
		}
		return err // nil commits the transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"type":    txType,      // Feature charged
			"error":   err.Error(), // Error message
		}).Error("AI charge failed")
		return nil, 0, err
	}
	return user, balance, nil
}

// refund credits amount back as an ai_refund entry referencing the original charge type
func (s *AIService) refund(ctx context.Context, userID string, amount int64, txType string) (int64, error) {
	var balance int64
	// Atomic refund
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = repository.NewLedgerRepo(tx).Credit(ctx, userID, amount, domain.TxAIRefund, txType)
		return err // nil commits the transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"amount":  amount,      // Coins to return
			"error":   err.Error(), // Error message
		}).Error("AI refund failed")
		return 0, err
	}
	return balance, nil
}
