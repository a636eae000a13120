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

	// Usage tracking
	UsageServiceURL string
	QuotaMaxRetries int
	QuotaRetryDelay time.Duration

	// Raw data. Records come from Postgres when DataServiceURL is empty.
	DataServiceURL   string
	DataServiceToken string

	// Prompt limits
	RawDataMaxRows     int
	RawDataMaxChars    int
	HistoryMaxMessages int

	// Workers
	AnalysisWorkers int

	// HTTP
	RateLimitPerMinute int
	FrontendURL        string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		RedisURL:             mustGetEnv("REDIS_URL"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		UsageServiceURL:      mustGetEnv("USAGE_SERVICE_URL"),
		QuotaMaxRetries:      getEnvAsIntOrDefault("QUOTA_MAX_RETRIES", 2),
		QuotaRetryDelay:      time.Duration(getEnvAsIntOrDefault("QUOTA_RETRY_DELAY_MS", 250)) * time.Millisecond,
		DataServiceURL:       getEnvOrDefault("DATA_SERVICE_URL", ""),
		DataServiceToken:     getEnvOrDefault("DATA_SERVICE_TOKEN", ""),
		RawDataMaxRows:       getEnvAsIntOrDefault("RAW_DATA_MAX_ROWS", 200),
		RawDataMaxChars:      getEnvAsIntOrDefault("RAW_DATA_MAX_CHARS", 30000),
		HistoryMaxMessages:   getEnvAsIntOrDefault("HISTORY_MAX_MESSAGES", 10),
		AnalysisWorkers:      getEnvAsIntOrDefault("ANALYSIS_WORKERS", 2),
		RateLimitPerMinute:   getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
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
