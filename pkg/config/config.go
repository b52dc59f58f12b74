package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DatabaseURL       string
	JWTSecret         string
	JWTAccessExpiry   time.Duration
	AdminPasswordHash string

	// At-rest encryption key for OAuth tokens (32 bytes, hex encoded)
	TokenEncryptionKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	MSClientID     string
	MSClientSecret string
	MSTenantID     string

	// Public base URL the providers push notifications to
	WebhookBaseURL string

	FirebaseCredentials string

	ReconcileCron   string
	CleanupCron     string
	AccountDelay    time.Duration
	ProviderTimeout time.Duration
	RenewalWindow   time.Duration

	DispatchWorkers   int
	DispatchQueueSize int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mailsync port=5432 sslmode=disable"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:   accessExpiry,
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_CREDENTIALS", ""),

		MSClientID:     getEnv("MS_CLIENT_ID", ""),
		MSClientSecret: getEnv("MS_CLIENT_SECRET", ""),
		MSTenantID:     getEnv("MS_TENANT_ID", "common"),

		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", "http://localhost:8080"),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		ReconcileCron:   getEnv("RECONCILE_CRON", "0 * * * *"),
		CleanupCron:     getEnv("CLEANUP_CRON", "30 3 * * *"),
		AccountDelay:    getDuration("ACCOUNT_DELAY", time.Second),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 15*time.Second),
		RenewalWindow:   getDuration("RENEWAL_WINDOW", 12*time.Hour),

		DispatchWorkers:   getInt("DISPATCH_WORKERS", 3),
		DispatchQueueSize: getInt("DISPATCH_QUEUE_SIZE", 500),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
