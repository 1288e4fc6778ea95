package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string

	// DatabaseURL selects the PostgreSQL backend when set; otherwise the
	// local SQLite file at SQLitePath is used.
	DatabaseURL string
	SQLitePath  string

	OpenAIAPIKey    string
	DefaultTimezone string
	LogLevel        string
	Environment     string

	// CronSpecDeliveryTick drives the periodic scheduler pass
	// (seconds-resolution cron spec).
	CronSpecDeliveryTick string

	FollowUpDelay       time.Duration // initial delivery -> "did you do it?" nudge
	SnoozeDelay         time.Duration // "not done" -> next attempt
	RecoveryGracePeriod time.Duration // max staleness still worth delivering late
	SendTimeout         time.Duration // bound on a single notification send

	RateLimitMessages int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing
	// .env file is fine.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "reminders.db")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	cfg.DefaultTimezone = getenvDefault("DEFAULT_TIMEZONE", "Asia/Tashkent")
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenvDefault("ENVIRONMENT", "development"))

	cfg.CronSpecDeliveryTick = getenvDefault("CRON_SPEC_DELIVERY_TICK", "*/30 * * * * *")

	var err error
	if cfg.FollowUpDelay, err = durationSecondsEnv("FOLLOW_UP_DELAY_SECONDS", 1800); err != nil {
		return nil, err
	}
	if cfg.SnoozeDelay, err = durationSecondsEnv("SNOOZE_DELAY_SECONDS", 1800); err != nil {
		return nil, err
	}
	if cfg.RecoveryGracePeriod, err = durationSecondsEnv("RECOVERY_GRACE_SECONDS", 2*3600); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = durationSecondsEnv("SEND_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}

	if cfg.RateLimitMessages, err = intEnv("RATE_LIMIT_MESSAGES", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = durationSecondsEnv("RATE_LIMIT_WINDOW_SECONDS", 60); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func durationSecondsEnv(key string, defSeconds int) (time.Duration, error) {
	seconds, err := intEnv(key, defSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
