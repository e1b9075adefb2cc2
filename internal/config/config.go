package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Credentials at rest
	CredentialsKey     string
	CredentialsKeyFile string

	// Portal automation
	PortalBaseURL     string
	PortalTerm        string
	PortalCookieStore string
	PortalCookieDir   string
	PortalCookieTTL   time.Duration
	PortalHeadless    bool
	PortalBrowserBin  string
	PortalIdleTimeout time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "5000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		CredentialsKey:       getEnvOrDefault("CREDENTIALS_KEY", ""),
		CredentialsKeyFile:   getEnvOrDefault("CREDENTIALS_KEY_FILE", "encryption.key"),
		PortalBaseURL:        getEnvOrDefault("PORTAL_BASE_URL", "https://webapps.4cd.edu"),
		PortalTerm:           getEnvOrDefault("PORTAL_TERM", "2026SP"),
		PortalCookieStore:    getEnvOrDefault("PORTAL_COOKIE_STORE", "file"),
		PortalCookieDir:      getEnvOrDefault("PORTAL_COOKIE_DIR", "./user_cookies"),
		PortalCookieTTL:      getEnvAsDurationOrDefault("PORTAL_COOKIE_TTL", 14*24*time.Hour),
		PortalHeadless:       getEnvAsBoolOrDefault("PORTAL_HEADLESS", true),
		PortalBrowserBin:     getEnvOrDefault("PORTAL_BROWSER_BIN", ""),
		PortalIdleTimeout:    getEnvAsDurationOrDefault("PORTAL_IDLE_TIMEOUT", 0),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go durations ("90s", "336h").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
