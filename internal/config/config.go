package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfig is returned when an environment value is missing or invalid
var ErrConfig = errors.New("invalid configuration")

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	minJWTSecretLength = 32
	minRefreshBytes    = 32
	maxRefreshBytes    = 64
)

// RateRule is an admission budget for one gated action
type RateRule struct {
	Limit  int
	Window time.Duration
}

// DatabaseConfig holds postgres connection parameters
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig holds the shared rate-limit backend connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig holds the event queue connection
type RabbitMQConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Queue    string
}

// URL builds the amqp connection URL
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

// TokenConfig holds the credential lifecycle policy
type TokenConfig struct {
	JWTSecret         string
	JWTIssuer         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RefreshTokenBytes int
	MaxRotations      int
	AbsoluteMaxAge    time.Duration
}

// ReaperConfig controls the expiry sweeps
type ReaperConfig struct {
	Schedule    string
	MaxAttempts int
}

// RateLimitConfig holds the gate rules
type RateLimitConfig struct {
	Backend       string
	Login         RateRule
	Refresh       RateRule
	Logout        RateRule
	EvictInterval time.Duration
}

// SeedUserConfig describes an account created at startup when absent
type SeedUserConfig struct {
	Email    string
	Password string
}

// Config is the full process configuration
type Config struct {
	Port              string
	BasePath          string
	LogLevel          string
	LogFormat         string
	StoreBackend      string
	SentryDSN         string
	SentryEnvironment string
	SessionListLimit  int

	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Token     TokenConfig
	Reaper    ReaperConfig
	RateLimit RateLimitConfig
	SeedUser  SeedUserConfig
}

// Load reads the configuration from environment variables and validates it
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvAsInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvAsDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvAsBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		BasePath:          getEnv("BASE_PATH", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),
		SessionListLimit:  intVar("SESSION_LIST_LIMIT", 50),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:  boolVar("EVENTS_RABBITMQ_ENABLED", false),
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASS", "guest"),
			Queue:    getEnv("RABBITMQ_EVENTS_QUEUE", "session_events"),
		},
		Token: TokenConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			JWTIssuer:         getEnv("JWT_ISSUER", "green-session-service"),
			AccessTokenTTL:    durVar("ACCESS_TOKEN_TTL", 60*time.Minute),
			RefreshTokenTTL:   durVar("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			RefreshTokenBytes: intVar("REFRESH_TOKEN_BYTES", 32),
			MaxRotations:      intVar("MAX_ROTATIONS", 10),
			AbsoluteMaxAge:    durVar("TOKEN_ABSOLUTE_MAX_AGE", 90*24*time.Hour),
		},
		Reaper: ReaperConfig{
			Schedule:    getEnv("REAPER_SCHEDULE", "@every 1h"),
			MaxAttempts: intVar("REAPER_MAX_ATTEMPTS", 3),
		},
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
			Login: RateRule{
				Limit:  intVar("RATE_LOGIN_LIMIT", 5),
				Window: durVar("RATE_LOGIN_WINDOW", 60*time.Second),
			},
			Refresh: RateRule{
				Limit:  intVar("RATE_REFRESH_LIMIT", 10),
				Window: durVar("RATE_REFRESH_WINDOW", 60*time.Second),
			},
			Logout: RateRule{
				Limit:  intVar("RATE_LOGOUT_LIMIT", 20),
				Window: durVar("RATE_LOGOUT_WINDOW", 60*time.Second),
			},
			EvictInterval: durVar("RATE_LIMIT_EVICT_INTERVAL", time.Minute),
		},
		SeedUser: SeedUserConfig{
			Email:    getEnv("SEED_USER_EMAIL", ""),
			Password: getEnv("SEED_USER_PASSWORD", ""),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if len(c.Token.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d bytes", ErrConfig, minJWTSecretLength)
	}
	if c.Token.RefreshTokenBytes < minRefreshBytes || c.Token.RefreshTokenBytes > maxRefreshBytes {
		return fmt.Errorf("%w: REFRESH_TOKEN_BYTES must be between %d and %d", ErrConfig, minRefreshBytes, maxRefreshBytes)
	}
	if c.Token.AccessTokenTTL <= 0 {
		return fmt.Errorf("%w: ACCESS_TOKEN_TTL must be positive", ErrConfig)
	}
	if c.Token.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: REFRESH_TOKEN_TTL must be positive", ErrConfig)
	}
	if c.Token.MaxRotations < 0 {
		return fmt.Errorf("%w: MAX_ROTATIONS must not be negative", ErrConfig)
	}
	if c.Token.AbsoluteMaxAge < c.Token.RefreshTokenTTL {
		return fmt.Errorf("%w: TOKEN_ABSOLUTE_MAX_AGE must be at least REFRESH_TOKEN_TTL", ErrConfig)
	}
	if c.Reaper.MaxAttempts < 1 {
		return fmt.Errorf("%w: REAPER_MAX_ATTEMPTS must be at least 1", ErrConfig)
	}
	if (c.SeedUser.Email == "") != (c.SeedUser.Password == "") {
		return fmt.Errorf("%w: SEED_USER_EMAIL and SEED_USER_PASSWORD must be set together", ErrConfig)
	}
	if c.SessionListLimit < 1 {
		return fmt.Errorf("%w: SESSION_LIST_LIMIT must be at least 1", ErrConfig)
	}

	switch c.StoreBackend {
	case StoreBackendPostgres:
		d := c.Database
		if d.Host == "" || d.Port == "" || d.User == "" || d.Password == "" || d.Name == "" {
			return fmt.Errorf("%w: missing required database environment variables (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)", ErrConfig)
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("%w: STORE_BACKEND must be %q or %q", ErrConfig, StoreBackendPostgres, StoreBackendMemory)
	}

	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf("%w: RATE_LIMIT_BACKEND must be %q or %q", ErrConfig, RateLimitBackendMemory, RateLimitBackendRedis)
	}

	for name, rule := range map[string]RateRule{
		"RATE_LOGIN":   c.RateLimit.Login,
		"RATE_REFRESH": c.RateLimit.Refresh,
		"RATE_LOGOUT":  c.RateLimit.Logout,
	} {
		if rule.Limit < 1 || rule.Window <= 0 {
			return fmt.Errorf("%w: %s_LIMIT and %s_WINDOW must be positive", ErrConfig, name, name)
		}
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s is not an integer: %q", ErrConfig, key, valueStr)
	}
	return value, nil
}

// getEnvAsDuration accepts Go durations ("90s", "1h") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s is not a duration: %q", ErrConfig, key, valueStr)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s is not a boolean: %q", ErrConfig, key, valueStr)
	}
	return value, nil
}
