// Package app wires campusbot's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	announcementsApp "github.com/felixgeelhaar/campusbot/internal/announcements/application"
	"github.com/felixgeelhaar/campusbot/internal/announcements/infrastructure/feed"
	"github.com/felixgeelhaar/campusbot/internal/messaging"
	"github.com/felixgeelhaar/campusbot/internal/messaging/discord"
	scheduleApp "github.com/felixgeelhaar/campusbot/internal/schedule/application"
	scheduleDomain "github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/internal/schedule/infrastructure/portal"
	"github.com/felixgeelhaar/campusbot/internal/schedule/render"
	"github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/scheduler"
	"github.com/felixgeelhaar/campusbot/internal/state"
	"github.com/felixgeelhaar/campusbot/pkg/config"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// staleAfter is how long the schedule may go without a successful sync
// before the health endpoint reports it degraded.
const staleAfter = 6 * time.Hour

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	State     *StateBackend
	Guard     *state.Guard
	Formatter *render.Formatter
	Messenger messaging.Messenger

	// Portal is nil when the schedule watcher is disabled.
	Portal          *portal.BreakingFetcher
	ScheduleWatcher *scheduleApp.Watcher

	// AnnouncementsWatcher is nil when the announcements watcher is disabled.
	AnnouncementsWatcher *announcementsApp.Watcher
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}
	for _, warning := range cfg.Warnings() {
		logger.WarnContext(ctx, "configuration warning", "detail", warning)
	}

	backend, err := OpenStateBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	c.State = backend
	c.Guard = state.NewGuard(backend.Store)
	c.Health.Register("state", observability.StoreHealthChecker(backend.Name, backend.Ping))
	logger.Info("state store ready", "backend", backend.Name)

	loc := cfg.Location()
	c.Formatter = render.NewFormatter(loc)
	c.Messenger = discord.New(discord.Config{
		Token:   cfg.DiscordToken,
		BaseURL: cfg.DiscordAPIURL,
	}, logger, c.Metrics)

	if cfg.ScheduleEnabled {
		client := portal.New(portal.Config{
			LoginURL:  cfg.ScheduleLoginURL,
			PortalURL: cfg.SchedulePortalURL,
			EventsURL: cfg.ScheduleEventsURL,
			Username:  cfg.ScheduleUsername,
			Password:  cfg.SchedulePassword,
			Timeout:   cfg.PortalTimeout,
			Location:  loc,
		}, logger, c.Metrics)
		c.Portal = portal.NewBreakingFetcher(client, portal.BreakerConfig{
			FailureThreshold: convert.IntToUint32Clamped(cfg.PortalBreakerFailures),
			Timeout:          cfg.PortalBreakerTimeout,
		}, logger, c.Metrics)
		c.Health.Register("portal", observability.BreakerHealthChecker("portal", c.Portal.State))
		c.Health.Register("schedule", observability.FreshnessHealthChecker("schedule", c.lastScheduleSync, staleAfter))
	}
	// The watcher is built even when disabled so admin commands that only
	// touch state (clear, show) keep working.
	var fetcher scheduleApp.Fetcher = disabledFetcher{}
	if c.Portal != nil {
		fetcher = c.Portal
	}
	c.ScheduleWatcher = scheduleApp.NewWatcher(fetcher, c.Messenger, c.Guard, c.Formatter,
		scheduleApp.WatcherConfig{ChannelID: cfg.ScheduleChannelID}, logger, c.Metrics)

	if cfg.AnnouncementsEnabled {
		feedClient, err := feed.New(cfg.AnnouncementsFeedURL, cfg.PortalTimeout, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.AnnouncementsWatcher = announcementsApp.NewWatcher(feedClient, c.Messenger, c.Guard,
			announcementsApp.WatcherConfig{ChannelID: cfg.AnnouncementsChannelID}, logger, c.Metrics)
	}

	return c, nil
}

// Scheduler returns a scheduler running every enabled watcher.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	s, err := scheduler.New(scheduler.Config{
		Cron:       c.Config.WatcherCron,
		Location:   c.Config.Location(),
		RunOnStart: true,
	}, c.Logger, c.Metrics)
	if err != nil {
		return nil, err
	}
	if c.Config.ScheduleEnabled {
		s.Add(scheduler.Task{Name: "schedule", Run: c.ScheduleWatcher.Run, Jitter: c.Config.ScheduleJitter})
	}
	if c.AnnouncementsWatcher != nil {
		s.Add(scheduler.Task{Name: "announcements", Run: c.AnnouncementsWatcher.Run, Jitter: c.Config.AnnouncementsJitter})
	}
	return s, nil
}

func (c *Container) lastScheduleSync(ctx context.Context) (time.Time, error) {
	st, err := c.State.Store.Read(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return st.Schedule.LastSuccessAt, nil
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.State != nil && c.State.Close != nil {
		if err := c.State.Close(); err != nil {
			c.Logger.Warn("error closing state store", "error", err)
		}
	}
}

// ErrScheduleDisabled is returned by the placeholder fetcher used when the
// schedule watcher is turned off.
var ErrScheduleDisabled = errors.New("schedule watcher is disabled")

type disabledFetcher struct{}

func (disabledFetcher) FetchSchedule(context.Context, scheduleApp.FetchOptions) ([]scheduleDomain.Entry, error) {
	return nil, ErrScheduleDisabled
}
