package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reportvault/api/internal/core/domain"
)

// Config holds all dynamic configuration for the report vault.
type Config struct {
	Environment    string // "development" or "production"
	DatabaseURL    string
	Port           string
	AllowedOrigins []string

	// 🛡️ Secrets: never logged, never defaulted
	JWTSecret        string
	EncryptionKey    string
	EncryptionSalt   string
	DownloadSecret   string
	DownloadTokenTTL time.Duration

	// Report storage lifecycle
	ReportsDir     string
	ReportMaxAge   time.Duration
	SweepInterval  time.Duration
	MaxReportBytes int64

	// Throttling policies
	DownloadLimit  int
	DownloadWindow time.Duration
	APILimit       int
	APIWindow      time.Duration
}

// IsProduction reports whether production safeguards apply.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load parses the environment and applies sensible default fallbacks.
// Missing secrets are an ErrConfig: the vault must never boot on an empty key.
func Load() (*Config, error) {
	env := getEnv("REPORTVAULT_ENV", "production")
	prod := env == "production"

	cfg := &Config{
		Environment:    env,
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		EncryptionSalt: getEnv("ENCRYPTION_SALT", "salt"),
		DownloadSecret: getEnv("DOWNLOAD_SECRET", ""),
		ReportsDir:     getEnv("REPORTS_DIR", "./reports"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
	}

	// 1. 🛡️ Zero-Trust: Fail Fast on Missing Secrets
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY environment variable is required: %w", domain.ErrConfig)
	}
	if cfg.DownloadSecret == "" {
		return nil, fmt.Errorf("DOWNLOAD_SECRET environment variable is required: %w", domain.ErrConfig)
	}
	if cfg.JWTSecret == "" && prod {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required in production: %w", domain.ErrConfig)
	}
	if cfg.DatabaseURL == "" && prod {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required in production: %w", domain.ErrConfig)
	}

	// 2. 🛡️ Strict CORS: Must be explicitly defined in Production
	corsOrigins := getEnv("CORS_ALLOWED_ORIGINS", "")
	if corsOrigins == "" {
		if prod {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS environment variable is required in production: %w", domain.ErrConfig)
		}
		corsOrigins = "http://localhost:5173"
	}
	cfg.AllowedOrigins = strings.Split(corsOrigins, ",")

	// 3. Lifecycle & throttling knobs
	var err error
	if cfg.DownloadTokenTTL, err = getDuration("DOWNLOAD_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReportMaxAge, err = getDuration("REPORT_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.DownloadWindow, err = getDuration("DOWNLOAD_WINDOW", time.Hour); err != nil {
		return nil, err
	}
	if cfg.APIWindow, err = getDuration("API_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DownloadLimit, err = getInt("DOWNLOAD_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.APILimit, err = getInt("API_LIMIT", 100); err != nil {
		return nil, err
	}
	maxBytes, err := getInt("MAX_REPORT_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxReportBytes = int64(maxBytes)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q: %w", key, raw, domain.ErrConfig)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q: %w", key, raw, domain.ErrConfig)
	}
	return n, nil
}
