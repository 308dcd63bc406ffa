package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string

	// Gmail OAuth (process-wide mailbox credential)
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	// OpenRouter
	OpenRouterAPIKey string
	OpenRouterModel  string

	// Auth
	CronSecret string
	JWTSecret  string

	// Ingestion tunables
	SyncWindowDays  int
	FetchBatchSize  int
	DomainCacheTTL  time.Duration
	IngestInterval  time.Duration // 0 disables the in-process scheduler
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	gmailClientID := os.Getenv("GMAIL_CLIENT_ID")
	gmailClientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	gmailRefreshToken := os.Getenv("GMAIL_REFRESH_TOKEN")
	if gmailClientID == "" || gmailClientSecret == "" || gmailRefreshToken == "" {
		fmt.Println("Warning: GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET or GMAIL_REFRESH_TOKEN not set, mailbox polling will not work")
	}

	openRouterAPIKey := os.Getenv("OPENROUTER_API_KEY")
	if openRouterAPIKey == "" {
		fmt.Println("Warning: OPENROUTER_API_KEY not set, AI enrichment is disabled")
	}

	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		fmt.Println("Warning: CRON_SECRET not set, the cron endpoint will reject all callers")
	}

	return &Config{
		DatabaseURL:       dbURL,
		Port:              getEnv("PORT", "8080"),
		GmailClientID:     gmailClientID,
		GmailClientSecret: gmailClientSecret,
		GmailRefreshToken: gmailRefreshToken,
		OpenRouterAPIKey:  openRouterAPIKey,
		OpenRouterModel:   os.Getenv("OPENROUTER_MODEL"),
		CronSecret:        cronSecret,
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SyncWindowDays:    getEnvInt("SYNC_WINDOW_DAYS", 7),
		FetchBatchSize:    getEnvInt("FETCH_BATCH_SIZE", 50),
		DomainCacheTTL:    getEnvDuration("DOMAIN_CACHE_TTL", 5*time.Minute),
		IngestInterval:    time.Duration(getEnvInt("INGEST_INTERVAL_MINUTES", 0)) * time.Minute,
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
