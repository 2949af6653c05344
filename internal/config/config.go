package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LinkLifetimeCeilingDays bounds LINK_MAX_LIFETIME_DAYS so day counts
// convert to time.Duration without overflow.
const LinkLifetimeCeilingDays = 36500

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Links     LinksConfig
	CRM       CRMConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	PublicBaseURL         string
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines staff authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// LinksConfig holds the signing secret and lifetimes of public product links.
type LinksConfig struct {
	SigningSecret       string
	SigningSalt         string
	DefaultLifetimeDays int
	MaxLifetimeDays     int
	QRImageSize         int
}

// CRMConfig points at the CRM inbound webhook.
type CRMConfig struct {
	WebhookURL      string
	TimeoutSeconds  int
	SyncLimit       int
	DefaultCurrency string
}

// RateLimitConfig throttles the anonymous link endpoint per client IP.
type RateLimitConfig struct {
	PublicLimit         int
	PublicWindowSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "product-links"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 10*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Links: LinksConfig{
			SigningSecret:       getEnv("LINK_SIGNING_SECRET", getEnv("APP_SECRET_KEY", "dev-link-secret")),
			SigningSalt:         getEnv("LINK_SIGNING_SALT", "product-links.view"),
			DefaultLifetimeDays: getEnvAsInt("LINK_DEFAULT_LIFETIME_DAYS", 365),
			MaxLifetimeDays:     getEnvAsInt("LINK_MAX_LIFETIME_DAYS", 3650),
			QRImageSize:         getEnvAsInt("QR_IMAGE_SIZE", 256),
		},
		CRM: CRMConfig{
			WebhookURL:      strings.TrimRight(os.Getenv("CRM_WEBHOOK_URL"), "/"),
			TimeoutSeconds:  getEnvAsInt("CRM_TIMEOUT_SECONDS", 15),
			SyncLimit:       getEnvAsInt("CRM_SYNC_LIMIT", 50),
			DefaultCurrency: getEnv("CRM_DEFAULT_CURRENCY", "RUB"),
		},
		RateLimit: RateLimitConfig{
			PublicLimit:         getEnvAsInt("PUBLIC_RATE_LIMIT", 60),
			PublicWindowSeconds: getEnvAsInt("PUBLIC_RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Links.SigningSecret) == "" {
		return errors.New("LINK_SIGNING_SECRET must not be empty")
	}
	if c.Links.DefaultLifetimeDays <= 0 {
		return fmt.Errorf("LINK_DEFAULT_LIFETIME_DAYS must be positive, got %d", c.Links.DefaultLifetimeDays)
	}
	if c.Links.MaxLifetimeDays < c.Links.DefaultLifetimeDays {
		return fmt.Errorf("LINK_MAX_LIFETIME_DAYS (%d) is below LINK_DEFAULT_LIFETIME_DAYS (%d)",
			c.Links.MaxLifetimeDays, c.Links.DefaultLifetimeDays)
	}
	if c.Links.MaxLifetimeDays > LinkLifetimeCeilingDays {
		return fmt.Errorf("LINK_MAX_LIFETIME_DAYS must not exceed %d, got %d",
			LinkLifetimeCeilingDays, c.Links.MaxLifetimeDays)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DefaultLifetime returns the standard link lifetime.
func (l LinksConfig) DefaultLifetime() time.Duration {
	return days(l.DefaultLifetimeDays)
}

// Timeout returns the per-request CRM timeout.
func (c CRMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window returns the fixed rate-limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.PublicWindowSeconds) * time.Second
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
