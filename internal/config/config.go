package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Environment string `toml:"environment"`
	ServerPort  string `toml:"port"`
	LogLevel    string `toml:"log_level"`

	// Storage
	DatabaseType  string `toml:"database_type"`
	DatabasePath  string `toml:"database_path"`
	DatabaseURL   string `toml:"database_url"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	RedisURL      string `toml:"redis_url"`

	// SQL connection pool
	DBMaxOpenConns    int           `toml:"db_max_open_conns"`
	DBMaxIdleConns    int           `toml:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `toml:"db_conn_max_lifetime"`

	// Tokens
	JWTSecret       string        `toml:"jwt_secret"`
	AccessTokenTTL  time.Duration `toml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `toml:"refresh_token_ttl"`
	InvitationTTL   time.Duration `toml:"invitation_ttl"`

	// Google sign-in
	GoogleClientID     string `toml:"google_client_id"`
	GoogleClientSecret string `toml:"google_client_secret"`
	GoogleRedirectURL  string `toml:"google_redirect_url"`

	// Email (Amazon SES)
	AWSRegion    string `toml:"aws_region"`
	SESFromEmail string `toml:"ses_from_email"`
	SESFromName  string `toml:"ses_from_name"`
	AppBaseURL   string `toml:"app_base_url"`
	EmailDebug   bool   `toml:"email_debug"`

	// HTTP
	AllowedOrigins  []string      `toml:"allowed_origins"`
	RateLimit       int           `toml:"rate_limit"`
	RateLimitWindow time.Duration `toml:"rate_limit_window"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() *Config {
	return &Config{
		Environment:       "development",
		ServerPort:        "5000",
		LogLevel:          "info",
		DatabaseType:      "sqlite",
		DatabasePath:      "./familytasks.db",
		MongoDatabase:     "familytasks",
		DBMaxOpenConns:    25,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 5 * time.Minute,
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		InvitationTTL:     7 * 24 * time.Hour,
		AWSRegion:         "us-east-1",
		SESFromName:       "Family Tasks",
		AppBaseURL:        "http://localhost:3000",
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimit:         20,
		RateLimitWindow:   time.Minute,
	}
}

// Load reads configuration from defaults, an optional TOML file (CONFIG_FILE)
// and environment variables, in that order of precedence.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays values from a TOML file. Durations are written as strings ("15m").
func (c *Config) loadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.DBMaxOpenConns)
	c.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.DBMaxIdleConns)
	c.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.DBConnMaxLifetime)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", c.AccessTokenTTL)
	c.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", c.RefreshTokenTTL)
	c.InvitationTTL = getEnvDuration("INVITATION_TTL", c.InvitationTTL)

	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.GoogleRedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.GoogleRedirectURL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)
	c.EmailDebug = getEnvBool("EMAIL_DEBUG", c.EmailDebug)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.RateLimit = getEnvInt("RATE_LIMIT", c.RateLimit)
	c.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimitWindow)
}

// Validate checks that the configuration can be used to start the server
func (c *Config) Validate() error {
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
	case "mongo", "mongodb":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when DATABASE_TYPE is mongo")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = "development-secret-change-me"
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return errors.New("database pool sizes must not be negative")
	}
	if c.InvitationTTL <= 0 {
		return errors.New("invitation lifetime must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// GoogleEnabled reports whether Google sign-in credentials are configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// UsesMongo reports whether the document store is selected
func (c *Config) UsesMongo() bool {
	switch strings.ToLower(c.DatabaseType) {
	case "mongo", "mongodb":
		return true
	}
	return false
}
