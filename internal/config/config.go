package config

import (
	"errors"  // Validation errors
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list values
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort        string   // Application port
	IsProd         bool     // Is production environment
	LogLevel       string   // Logrus level name
	TrustedProxies []string // Proxies allowed to set X-Forwarded-For

	DBDriver   string // postgres, mysql or sqlite
	DBDSN      string // Full DSN, built from the parts below when empty
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name

	JWTSecret string        // JWT secret key
	JWTTTL    time.Duration // Token lifetime

	RedisAddr string // Redis server address, empty disables redis
	RedisPass string // Redis password
	RedisDB   int    // Redis database number

	RateLimitWindow time.Duration // Fixed window length
	RateLimitMax    int           // Requests per window for the general API
	AIRateLimitMax  int           // Requests per window for /api/ai

	AIAPIKey            string        // LLM provider key, empty disables the provider
	AIBaseURL           string        // OpenAI compatible base URL
	AIModel             string        // Chat model name
	AITimeout           time.Duration // Provider HTTP timeout
	AIRequestsPerSecond float64       // Outbound token bucket rate

	NATSURL string // Analytics publishing, empty disables

	JobsEnabled       bool   // Run cron jobs inside the server
	MissionExpiryCron string // Mission expiry schedule
	StreakResetCron   string // Streak reset schedule
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:        getEnv("APP_PORT", "8080"),
		IsProd:         os.Getenv("IS_PROD") == "true",
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{"127.0.0.1"}),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBDSN:      os.Getenv("DB_DSN"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     getEnv("DB_NAME", "qic_life"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASS"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		AIRateLimitMax:  getEnvInt("AI_RATE_LIMIT_MAX", 10),

		AIAPIKey:            os.Getenv("AI_API_KEY"),
		AIBaseURL:           getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIModel:             getEnv("AI_MODEL", "gpt-4o-mini"),
		AITimeout:           getEnvDuration("AI_TIMEOUT", 30*time.Second),
		AIRequestsPerSecond: getEnvFloat("AI_REQUESTS_PER_SECOND", 2),

		NATSURL: os.Getenv("NATS_URL"),

		JobsEnabled:       getEnv("JOBS_ENABLED", "true") == "true",
		MissionExpiryCron: getEnv("MISSION_EXPIRY_CRON", "@every 15m"),
		StreakResetCron:   getEnv("STREAK_RESET_CRON", "5 0 * * *"),
	}
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	switch c.DBDriver {
	case "postgres", "supabase", "mysql", "sqlite":
	default:
		return errors.New("DB_DRIVER must be postgres, mysql or sqlite")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// DSN returns the configured DSN or builds one for the selected driver
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	switch c.DBDriver {
	case "mysql":
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true"
	case "sqlite":
		return c.DBName + ".db"
	default:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
			" dbname=" + c.DBName + " port=" + port + " sslmode=require"
	}
}

// getEnv gets environment variable as string with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvFloat gets environment variable as float64 with default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList gets a comma separated environment variable with default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
