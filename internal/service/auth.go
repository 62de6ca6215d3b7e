package service

import (
	"context" // Request scoped context
	"errors"  // Error inspection
	"regexp"  // Pattern validation
	"strings" // String helpers
	"time"    // Timestamps and durations

	"qic_life/internal/domain"     // Domain models
	"qic_life/internal/game"       // Game rules
	"qic_life/internal/repository" // Data access
	"qic_life/internal/utils"      // Cache and JWT helpers

	"github.com/google/uuid"       // UUID generation
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// Password bounds; bcrypt ignores anything past 72 bytes
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

const referralCodeLen = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService registers and authenticates users
type AuthService struct {
	db        *gorm.DB          // Database handle
	rdb       *redis.Client     // Cache, nil when disabled
	secret    string            // JWT signing secret
	ttl       time.Duration     // Token lifetime
	cost      int               // bcrypt cost
	analytics *AnalyticsService // Server side events
	referrals *ReferralService  // Applies signup referral codes
}

// RegisterInput is the data needed to open an account
type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	ReferralCode string
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates the user, pays the signup bonus and applies an optional referral code
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	// Validate input
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !emailPattern.MatchString(email) {
		return nil, invalid("a valid email is required")
	}
	if len(in.Password) < minPasswordLen || len(in.Password) > maxPasswordLen {
		return nil, invalid("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")] // Default to the mailbox name
	}
	if len(name) > 120 {
		return nil, invalid("name must be at most 120 characters")
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	// Create user
	user := &domain.User{
		Email:     email,                 // Lower-cased email
		Password:  string(hash),          // Hashed password
		Name:      name,                  // Display name
		Role:      domain.RoleUser,       // Regular user
		Level:     1,                     // Starting level
		LifeScore: game.InitialLifeScore, // Starting LifeScore
	}
	var ref *domain.Referral
	// Atomic registration
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check for existing user
		users := repository.NewUserRepo(tx)
		existing, err := users.FindByEmail(ctx, email)
		if err != nil {
			return err // Return error to rollback
		}
		if existing != nil {
			return newError(ErrConflict, "email is already registered")
		}
		if user.ReferralCode, err = uniqueReferralCode(ctx, users); err != nil {
			return err // Return error to rollback
		}
		if err := users.Create(ctx, user); err != nil {
			// Registered concurrently
			if errors.Is(err, repository.ErrDuplicate) {
				return newError(ErrConflict, "email is already registered")
			}
			return err // Return error to rollback
		}

		// Pay the signup bonus through the ledger
		balance, err := repository.NewLedgerRepo(tx).Credit(ctx, user.ID, game.SignupBonusCoins, domain.TxSignupBonus, "")
		if err != nil {
			return err // Return error to rollback
		}
		user.Coins = balance

		// Apply the optional referral code
		if in.ReferralCode != "" {
			if ref, err = s.referrals.applyTx(ctx, tx, user, in.ReferralCode); err != nil {
				return err // Return error to rollback
			}
		}
		return nil // Commit transaction
	})
	// Handle transaction result
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"email": email,       // Email attempted
			"error": err.Error(), // Error message
		}).Error("Registration failed")
		return nil, err
	}

	// Generate JWT token
	token, err := utils.GenerateJWT(user.ID, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}

	// Log successful registration
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,    // User ID
		"coins":    user.Coins, // Signup balance
		"referred": ref != nil, // Referral code applied
	}).Info("User registered")
	invalidateUsers(ctx, s.rdb) // Admin user pages are stale
	s.analytics.Record(ctx, user.ID, EventUserRegistered, nil)
	if ref != nil {
		invalidateUsers(ctx, s.rdb, ref.ReferrerID)
		s.analytics.Record(ctx, user.ID, EventReferralApplied, map[string]any{"referrer_id": ref.ReferrerID, "status": ref.Status})
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks the credentials and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	// Find user by email
	user, err := repository.NewUserRepo(s.db).FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrUnauthorized, "invalid credentials") // Same answer as a wrong password
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, newError(ErrUnauthorized, "invalid credentials")
	}

	// Generate JWT token
	token, err := utils.GenerateJWT(user.ID, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	logrus.WithField("user_id", user.ID).Info("User logged in") // Log successful login
	return &AuthResult{Token: token, User: user}, nil
}

// uniqueReferralCode draws codes until one is unused
func uniqueReferralCode(ctx context.Context, users *repository.UserRepo) (string, error) {
	for {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:referralCodeLen])
		owner, err := users.FindByReferralCode(ctx, code)
		if err != nil {
			return "", err
		}
		if owner == nil {
			return code, nil
		}
	}
}
