package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// System owner for scraped calendars (events imported by scrapers need
	// an owning calendar; that calendar belongs to this user id).
	SystemOwnerID string

	// Google Calendar OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Firecrawl extraction API
	FirecrawlAPIURL string
	FirecrawlAPIKey string

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Sync queue configuration
	SyncWorkers      int
	SyncMaxAttempts  int
	SyncBackoffBase  time.Duration
	SyncStaggerMax   time.Duration
	SweepCron        string
	DedupSweepCron   string

	// Timeout configuration
	FetchTimeout   time.Duration
	ExtractTimeout time.Duration

	// Seed file for scraper sources (optional)
	SourcesSeedFile string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Ownership
		SystemOwnerID: getEnv("SYSTEM_OWNER_ID", ""),

		// Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		// Firecrawl
		FirecrawlAPIURL: getEnv("FIRECRAWL_API_URL", "https://api.firecrawl.dev/v1/scrape"),
		FirecrawlAPIKey: getEnv("FIRECRAWL_API_KEY", ""),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Sync queue
		SyncWorkers:     getEnvAsInt("SYNC_WORKERS", 4),
		SyncMaxAttempts: getEnvAsInt("SYNC_MAX_ATTEMPTS", 3),
		SyncBackoffBase: getEnvAsDuration("SYNC_BACKOFF_BASE", "1m"),
		SyncStaggerMax:  getEnvAsDuration("SYNC_STAGGER_MAX", "60s"),
		SweepCron:       getEnv("SWEEP_CRON", "*/15 * * * *"),
		DedupSweepCron:  getEnv("DEDUP_SWEEP_CRON", "0 5 * * *"),

		// Timeouts
		FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", "30s"),
		ExtractTimeout: getEnvAsDuration("EXTRACT_TIMEOUT", "60s"),

		// Seeds
		SourcesSeedFile: getEnv("SOURCES_SEED_FILE", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
