package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, built once at startup and passed
// explicitly to the components that need it.
type Config struct {
	Port        string
	EnableHTTPS bool

	// Admission / auth
	SessionSecret     []byte
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string // bcrypt hash, takes precedence over AdminPassword
	SessionTTL        time.Duration

	// Rate limiting
	LoginMaxAttempts int
	LoginWindow      time.Duration
	LeadMaxRequests  int
	LeadWindow       time.Duration
	SweepInterval    time.Duration

	// CORS
	AllowedOrigins []string

	// Storage
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxRequestSize int64
}

// LoadConfig reads configuration from the environment. The signing secret and
// admin credentials have no defaults: the process must not come up without
// them.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		EnableHTTPS:       os.Getenv("ENABLE_HTTPS") == "true",
		AdminUsername:     os.Getenv("ADMIN_USERNAME"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionTTL:        24 * time.Hour,
		LoginMaxAttempts:  5,
		LoginWindow:       15 * time.Minute,
		LeadMaxRequests:   10,
		LeadWindow:        time.Minute,
		SweepInterval:     5 * time.Minute,
		DBPath:            getEnv("DB_PATH", "casavelle.db"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		MaxRequestSize:    1024 * 1024, // 1MB
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	cfg.SessionSecret = []byte(secret)

	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("ADMIN_USERNAME is required")
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}

	origins := getEnv("ALLOWED_ORIGINS", "https://www.casavelle.com,https://casavelle.com")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	return cfg, nil
}

// getEnv returns the environment variable value or a default if empty.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
