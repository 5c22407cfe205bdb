package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI       string
	BoltPath          string
	TelegramToken     string
	AIAPIKey          string
	AIBaseURL         string
	AIModel           string
	Timezone          string
	SchedulerInterval time.Duration
	CheckerInterval   time.Duration
	Port              string
	RetentionDays     int
	PruneSchedule     string
	HistoryLimit      int
	DevMode           bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	schedulerInterval, err := getDurationOrDefault("SCHEDULER_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	checkerInterval, err := getDurationOrDefault("CHECKER_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	retentionDays, err := getIntOrDefault("RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getIntOrDefault("HISTORY_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURI:       os.Getenv("DATABASE_URI"),
		BoltPath:          getEnvOrDefault("BOLT_PATH", "data/coachline.db"),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		AIAPIKey:          os.Getenv("AI_API_KEY"),
		AIBaseURL:         getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:           getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		Timezone:          getEnvOrDefault("TIMEZONE", "Asia/Kolkata"),
		SchedulerInterval: schedulerInterval,
		CheckerInterval:   checkerInterval,
		Port:              getEnvOrDefault("PORT", "8080"),
		RetentionDays:     retentionDays,
		PruneSchedule:     getEnvOrDefault("PRUNE_SCHEDULE", "0 3 * * *"),
		HistoryLimit:      historyLimit,
		DevMode:           os.Getenv("DEV_MODE") == "true",
	}, nil
}

// Validate checks the settings the loops depend on. The daily scheduler matches
// events by minute, so it must tick more than once a minute.
func (c *Config) Validate() error {
	if c.SchedulerInterval <= 0 || c.SchedulerInterval >= time.Minute {
		return fmt.Errorf("SCHEDULER_INTERVAL must be between 0 and 60s, got %s", c.SchedulerInterval)
	}
	if c.CheckerInterval <= 0 {
		return fmt.Errorf("CHECKER_INTERVAL must be positive, got %s", c.CheckerInterval)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative, got %d", c.RetentionDays)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
