package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	AppURL       string
	Port         string
	SupportEmail string

	// Database (driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string
	AutoMigrate  bool

	// Bearer secret for job triggers and the internal settings API
	JobSecret string

	// Observability (optional)
	SentryDSN string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// SMS (optional, contacts without email use it)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Push (owner notices)
	ExpoPushURL string

	// Strava
	StravaClientID     string
	StravaClientSecret string
	StravaAPIURL       string
	StravaTokenURL     string

	// Dedup
	DedupBackend    string // "memory" or "redis"
	DedupWindowDays int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Scheduling
	SchedulerTimezone string
	SlotMorningCron   string
	SlotAfternoonCron string
	SlotEveningCron   string
	DeliveryCron      string
	SyncCron          string
	QueueMaxAttempts  int

	// Delivery
	DeliveryBatchSize    int
	MaxSendsPerRun       int
	SendPaceEvery        int
	SendPaceDelay        time.Duration
	DeliveryConcurrency  int
	RunTimeout           time.Duration
	SendTimeout          time.Duration
	StaleProcessingAfter time.Duration

	// Run report archive (S3-compatible, optional)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		AppName:      envString("APP_NAME", "Rundown"),
		AppEnv:       envRequired("APP_ENV"), // 'development' or 'production'
		AppURL:       envRequired("APP_URL"), // base URL for opt-out links
		Port:         envString("PORT", "8090"),
		SupportEmail: envString("SUPPORT_EMAIL", "support@example.com"),

		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/rundown.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),
		AutoMigrate:  envBool("AUTO_MIGRATE", true),

		JobSecret: envRequired("JOB_SECRET"),
		SentryDSN: envString("SENTRY_DSN", ""),

		// RESEND_API_KEY optional in development, required in production
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		TwilioAccountSID: envString("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  envString("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: envString("TWILIO_FROM_NUMBER", ""),

		ExpoPushURL: envString("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),

		StravaClientID:     envString("STRAVA_CLIENT_ID", ""),
		StravaClientSecret: envString("STRAVA_CLIENT_SECRET", ""),
		StravaAPIURL:       envString("STRAVA_API_URL", "https://www.strava.com/api/v3"),
		StravaTokenURL:     envString("STRAVA_TOKEN_URL", "https://www.strava.com/oauth/token"),

		DedupBackend:    envString("DEDUP_BACKEND", "memory"),
		DedupWindowDays: envInt("DEDUP_WINDOW_DAYS", 14),
		RedisAddr:       envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   envString("REDIS_PASSWORD", ""),
		RedisDB:         envInt("REDIS_DB", 0),

		SchedulerTimezone: envString("SCHEDULER_TIMEZONE", "UTC"),
		SlotMorningCron:   envString("SLOT_MORNING_CRON", "0 9 * * *"),
		SlotAfternoonCron: envString("SLOT_AFTERNOON_CRON", "0 15 * * *"),
		SlotEveningCron:   envString("SLOT_EVENING_CRON", "0 21 * * *"),
		DeliveryCron:      envString("DELIVERY_CRON", "*/5 * * * *"),
		SyncCron:          envString("SYNC_CRON", "0 */3 * * *"),
		QueueMaxAttempts:  envInt("QUEUE_MAX_ATTEMPTS", 3),

		DeliveryBatchSize:    envInt("DELIVERY_BATCH_SIZE", 50),
		MaxSendsPerRun:       envInt("MAX_SENDS_PER_RUN", 100),
		SendPaceEvery:        envInt("SEND_PACE_EVERY", 10),
		SendPaceDelay:        envDuration("SEND_PACE_DELAY", 500*time.Millisecond),
		DeliveryConcurrency:  envInt("DELIVERY_CONCURRENCY", 4),
		RunTimeout:           envDuration("RUN_TIMEOUT", 4*time.Minute),
		SendTimeout:          envDuration("SEND_TIMEOUT", 30*time.Second),
		StaleProcessingAfter: envDuration("STALE_PROCESSING_AFTER", 15*time.Minute),

		S3Region:    envString("S3_REGION", "us-east-1"),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction exits when a service development can fake is missing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location is the scheduler time zone, UTC when unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		slog.Warn("unknown scheduler timezone, using UTC", "timezone", c.SchedulerTimezone)
		return time.UTC
	}
	return loc
}

func (c *Config) SMSConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}
