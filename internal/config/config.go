package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment
type Config struct {
	Environment string
	Port        string

	DBDriver    string // postgres or sqlite
	DatabaseURL string

	JWTSecret []byte
	TokenTTL  time.Duration

	AWSRegion  string
	AWSBucket  string
	CDNBaseURL string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	LogLevel string
	LogFile  string

	OTelEnabled  bool
	OTelEndpoint string

	RateLimitPerMinute int
}

// Load reads .env (if present) and the process environment.
// JWT_SECRET is required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
		Port:               getEnvOrDefault("PORT", "8787"),
		JWTSecret:          []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:           time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		AWSRegion:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:          os.Getenv("AWS_BUCKET"),
		CDNBaseURL:         os.Getenv("CDN_BASE_URL"),
		RedisHost:          os.Getenv("REDIS_HOST"),
		RedisPort:          getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("LOG_FILE", "logs/server.log"),
		OTelEnabled:        os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
	}

	cfg.DBDriver, cfg.DatabaseURL = Database()
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}
	return cfg, nil
}

// RedisEnabled reports whether a Redis host is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Database returns the driver and DSN from DB_DRIVER and DATABASE_URL,
// building a DSN from the DB_* variables when DATABASE_URL is unset.
// It does not load .env.
func Database() (driver, dsn string) {
	driver = getEnvOrDefault("DB_DRIVER", "postgres")
	if dsn = os.Getenv("DATABASE_URL"); dsn == "" {
		dsn = defaultDSN(driver)
	}
	return driver, dsn
}

func defaultDSN(driver string) string {
	if driver == "sqlite" {
		return getEnvOrDefault("DB_PATH", "cub.db")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "postgres"),
		getEnvOrDefault("DB_PASSWORD", ""),
		getEnvOrDefault("DB_NAME", "cub"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}
