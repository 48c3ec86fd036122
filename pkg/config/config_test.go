package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE",
	"DISCORD_TOKEN", "DISCORD_API_URL",
	"ENABLE_SCHEDULE_WATCHER", "SCHEDULE_LOGIN_URL", "SCHEDULE_PORTAL_URL",
	"SCHEDULE_EVENTS_URL", "SCHEDULE_USERNAME", "SCHEDULE_PASSWORD",
	"SCHEDULE_CHANNEL_ID", "SCHEDULE_JITTER",
	"ENABLE_ANNOUNCEMENTS_WATCHER", "ANNOUNCEMENTS_CHANNEL_ID",
	"ANNOUNCEMENTS_FEED_URL", "ANNOUNCEMENTS_JITTER",
	"WATCHER_CRON", "PORTAL_TIMEOUT", "PORTAL_BREAKER_FAILURES", "PORTAL_BREAKER_TIMEOUT",
	"STATE_BACKEND", "STATE_PATH", "SQLITE_PATH", "REDIS_URL", "DATABASE_URL",
	"WORKER_HEALTH_ADDR",
}

// clearEnv blanks every campusbot variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func validConfig() *Config {
	return &Config{
		Timezone:               "Europe/Lisbon",
		DiscordToken:           "token",
		ScheduleEnabled:        true,
		ScheduleLoginURL:       "https://netpa.example.pt/login",
		SchedulePortalURL:      "https://netpa.example.pt/horario",
		ScheduleUsername:       "aluno",
		SchedulePassword:       "segredo",
		ScheduleChannelID:      "111",
		AnnouncementsEnabled:   true,
		AnnouncementsChannelID: "222",
		AnnouncementsFeedURL:   "https://example.pt/noticias",
		PortalBreakerFailures:  3,
		StateBackend:           BackendFile,
		StatePath:              "data/state.json",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFormat, "format follows APP_ENV when unset")
	assert.Equal(t, "Europe/Lisbon", cfg.Timezone)
	assert.Equal(t, "https://discord.com/api/v10", cfg.DiscordAPIURL)

	assert.True(t, cfg.ScheduleEnabled)
	assert.True(t, cfg.AnnouncementsEnabled)
	assert.Equal(t, 5*time.Minute, cfg.ScheduleJitter)
	assert.Equal(t, 10*time.Minute, cfg.AnnouncementsJitter)
	assert.Equal(t, "0 * * * *", cfg.WatcherCron)

	assert.Equal(t, 30*time.Second, cfg.PortalTimeout)
	assert.Equal(t, 3, cfg.PortalBreakerFailures)
	assert.Equal(t, 30*time.Minute, cfg.PortalBreakerTimeout)

	assert.Equal(t, BackendFile, cfg.StateBackend)
	assert.Equal(t, "data/state.json", cfg.StatePath)
	assert.Equal(t, "data/state.db", cfg.SQLitePath)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Empty(t, cfg.DatabaseURL)

	assert.Equal(t, "0.0.0.0:8081", cfg.WorkerHealthAddr)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_WithCustomEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DISCORD_TOKEN", "abc")
	t.Setenv("SCHEDULE_EVENTS_URL", "https://netpa.example.pt/events")
	t.Setenv("SCHEDULE_JITTER", "90s")
	t.Setenv("ENABLE_ANNOUNCEMENTS_WATCHER", "off")
	t.Setenv("WATCHER_CRON", "*/30 * * * *")
	t.Setenv("PORTAL_BREAKER_FAILURES", "5")
	t.Setenv("STATE_BACKEND", "Redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "abc", cfg.DiscordToken)
	assert.Equal(t, "https://netpa.example.pt/events", cfg.ScheduleEventsURL)
	assert.Equal(t, 90*time.Second, cfg.ScheduleJitter)
	assert.False(t, cfg.AnnouncementsEnabled)
	assert.Equal(t, "*/30 * * * *", cfg.WatcherCron)
	assert.Equal(t, 5, cfg.PortalBreakerFailures)
	assert.Equal(t, BackendRedis, cfg.StateBackend)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORTAL_TIMEOUT", "soon")
	t.Setenv("PORTAL_BREAKER_FAILURES", "many")
	t.Setenv("ENABLE_SCHEDULE_WATCHER", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PortalTimeout)
	assert.Equal(t, 3, cfg.PortalBreakerFailures)
	assert.True(t, cfg.ScheduleEnabled)
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true}, {"1", true}, {"YES", true}, {"on", true},
		{"false", false}, {"0", false}, {"no", false}, {"Off", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("CAMPUSBOT_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getBoolEnv("CAMPUSBOT_TEST_BOOL", !tt.want))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.DiscordToken = "" }, "DISCORD_TOKEN is required"},
		{"missing portal password", func(c *Config) { c.SchedulePassword = " " }, "SCHEDULE_PASSWORD is required"},
		{"schedule disabled", func(c *Config) {
			c.ScheduleEnabled = false
			c.ScheduleLoginURL = ""
			c.SchedulePassword = ""
		}, ""},
		{"missing feed url", func(c *Config) { c.AnnouncementsFeedURL = "" }, "ANNOUNCEMENTS_FEED_URL is required"},
		{"announcements disabled", func(c *Config) {
			c.AnnouncementsEnabled = false
			c.AnnouncementsChannelID = ""
		}, ""},
		{"unknown backend", func(c *Config) { c.StateBackend = "mongo" }, `STATE_BACKEND "mongo"`},
		{"postgres without url", func(c *Config) { c.StateBackend = BackendPostgres }, "DATABASE_URL is required"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, `TIMEZONE "Mars/Olympus"`},
		{"breaker threshold", func(c *Config) { c.PortalBreakerFailures = 0 }, "PORTAL_BREAKER_FAILURES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.problem == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	err := (&Config{Timezone: "UTC", StateBackend: BackendFile, PortalBreakerFailures: 1}).Validate()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2, "token and state path")
}

func TestWarnings(t *testing.T) {
	t.Run("look-ahead without events url", func(t *testing.T) {
		cfg := validConfig()

		warnings := cfg.Warnings()

		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "SCHEDULE_EVENTS_URL")
		assert.NoError(t, cfg.Validate(), "a warning is not a validation problem")
	})

	t.Run("events url set", func(t *testing.T) {
		cfg := validConfig()
		cfg.ScheduleEventsURL = "https://netpa.example.pt/events"

		assert.Empty(t, cfg.Warnings())
	})

	t.Run("schedule disabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.ScheduleEnabled = false

		assert.Empty(t, cfg.Warnings())
	})
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Lisbon"}
	assert.Equal(t, "Europe/Lisbon", cfg.Location().String())

	cfg.Timezone = "nowhere"
	assert.Equal(t, time.UTC, cfg.Location())
}
