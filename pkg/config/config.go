// Package config loads campusbot settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// State backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	Timezone  string

	// Discord
	DiscordToken  string
	DiscordAPIURL string

	// Schedule watcher
	ScheduleEnabled   bool
	ScheduleLoginURL  string
	SchedulePortalURL string
	ScheduleEventsURL string
	ScheduleUsername  string
	SchedulePassword  string
	ScheduleChannelID string
	ScheduleJitter    time.Duration

	// Announcements watcher
	AnnouncementsEnabled   bool
	AnnouncementsChannelID string
	AnnouncementsFeedURL   string
	AnnouncementsJitter    time.Duration

	// Scheduling
	WatcherCron string

	// Portal
	PortalTimeout         time.Duration
	PortalBreakerFailures int
	PortalBreakerTimeout  time.Duration

	// State
	StateBackend string
	StatePath    string
	SQLitePath   string
	RedisURL     string
	DatabaseURL  string

	// Worker
	WorkerHealthAddr string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
		Timezone:  getEnv("TIMEZONE", "Europe/Lisbon"),

		DiscordToken:  getEnv("DISCORD_TOKEN", ""),
		DiscordAPIURL: getEnv("DISCORD_API_URL", "https://discord.com/api/v10"),

		ScheduleEnabled:   getBoolEnv("ENABLE_SCHEDULE_WATCHER", true),
		ScheduleLoginURL:  getEnv("SCHEDULE_LOGIN_URL", ""),
		SchedulePortalURL: getEnv("SCHEDULE_PORTAL_URL", ""),
		ScheduleEventsURL: getEnv("SCHEDULE_EVENTS_URL", ""),
		ScheduleUsername:  getEnv("SCHEDULE_USERNAME", ""),
		SchedulePassword:  getEnv("SCHEDULE_PASSWORD", ""),
		ScheduleChannelID: getEnv("SCHEDULE_CHANNEL_ID", ""),
		ScheduleJitter:    getDurationEnv("SCHEDULE_JITTER", 5*time.Minute),

		AnnouncementsEnabled:   getBoolEnv("ENABLE_ANNOUNCEMENTS_WATCHER", true),
		AnnouncementsChannelID: getEnv("ANNOUNCEMENTS_CHANNEL_ID", ""),
		AnnouncementsFeedURL:   getEnv("ANNOUNCEMENTS_FEED_URL", ""),
		AnnouncementsJitter:    getDurationEnv("ANNOUNCEMENTS_JITTER", 10*time.Minute),

		WatcherCron: getEnv("WATCHER_CRON", "0 * * * *"),

		PortalTimeout:         getDurationEnv("PORTAL_TIMEOUT", 30*time.Second),
		PortalBreakerFailures: getIntEnv("PORTAL_BREAKER_FAILURES", 3),
		PortalBreakerTimeout:  getDurationEnv("PORTAL_BREAKER_TIMEOUT", 30*time.Minute),

		StateBackend: strings.ToLower(getEnv("STATE_BACKEND", BackendFile)),
		StatePath:    getEnv("STATE_PATH", "data/state.json"),
		SQLitePath:   getEnv("SQLITE_PATH", "data/state.db"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
	}

	return cfg, nil
}

// ValidationError lists every setting that failed validation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks required keys, the state backend and the timezone.
func (c *Config) Validate() error {
	var problems []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, key+" is required")
		}
	}

	require("DISCORD_TOKEN", c.DiscordToken)

	if c.ScheduleEnabled {
		require("SCHEDULE_LOGIN_URL", c.ScheduleLoginURL)
		require("SCHEDULE_PORTAL_URL", c.SchedulePortalURL)
		require("SCHEDULE_USERNAME", c.ScheduleUsername)
		require("SCHEDULE_PASSWORD", c.SchedulePassword)
		require("SCHEDULE_CHANNEL_ID", c.ScheduleChannelID)
	}
	if c.AnnouncementsEnabled {
		require("ANNOUNCEMENTS_CHANNEL_ID", c.AnnouncementsChannelID)
		require("ANNOUNCEMENTS_FEED_URL", c.AnnouncementsFeedURL)
	}

	switch c.StateBackend {
	case BackendFile:
		require("STATE_PATH", c.StatePath)
	case BackendSQLite:
		require("SQLITE_PATH", c.SQLitePath)
	case BackendRedis:
		require("REDIS_URL", c.RedisURL)
	case BackendPostgres:
		require("DATABASE_URL", c.DatabaseURL)
	default:
		problems = append(problems, fmt.Sprintf("STATE_BACKEND %q is not one of file, sqlite, redis, postgres", c.StateBackend))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE %q is not a known location", c.Timezone))
	}
	if c.PortalBreakerFailures < 1 {
		problems = append(problems, "PORTAL_BREAKER_FAILURES must be at least 1")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Warnings lists settings that are valid but limit behaviour.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.ScheduleEnabled && strings.TrimSpace(c.ScheduleEventsURL) == "" {
		warnings = append(warnings, "SCHEDULE_EVENTS_URL is not set: next week look-ahead only sees classes already rendered on the current week page")
	}
	return warnings
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}
