package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int
	LogLevel    string
	CORSOrigins []string

	// Household backend
	BackendURL    string
	BackendAPIKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Onboarding state store: memory, postgres or sqlite
	OnboardingStore string
	DatabaseURL     string
	SQLitePath      string

	// JWT (tokens are issued by the external auth service)
	JWTSecret string

	// Wizard step targets
	GmailOAuthURL    string
	ProfileSetupPath string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvCSV("CORS_ALLOWED_ORIGINS", []string{"*"}),

		BackendURL:    getEnv("BACKEND_URL", "http://localhost:5000/api"),
		BackendAPIKey: getEnv("BACKEND_API_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 32),

		CacheTTL: getEnvDuration("CACHE_TTL", 2*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		OnboardingStore: strings.ToLower(getEnv("ONBOARDING_STORE", "memory")),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "hub-state.db"),

		JWTSecret: getEnv("JWT_SECRET", "hub-default-dev-secret-change-me"),

		GmailOAuthURL:    getEnv("GMAIL_OAUTH_URL", "http://localhost:5000/api/auth/google"),
		ProfileSetupPath: getEnv("PROFILE_SETUP_PATH", "/profile/setup"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
