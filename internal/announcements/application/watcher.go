// Package application runs the announcements watcher.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/campusbot/internal/announcements/domain"
	"github.com/felixgeelhaar/campusbot/internal/messaging"
	"github.com/felixgeelhaar/campusbot/internal/state"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

const (
	// DefaultLimit is how many feed items are inspected per run.
	DefaultLimit = 10
	// maxEmbeds is the number of announcements shown in one message.
	maxEmbeds = 5
)

// Feed lists the most recent announcements, newest first.
type Feed interface {
	FetchLatest(ctx context.Context, limit int) ([]domain.Announcement, error)
}

// WatcherConfig configures the announcements watcher.
type WatcherConfig struct {
	ChannelID string
	Limit     int
}

// CheckResult summarizes one run.
type CheckResult struct {
	Fetched int
	New     int
	Posted  bool
}

// Watcher posts announcements that have not been seen before.
type Watcher struct {
	feed      Feed
	messenger messaging.Messenger
	guard     *state.Guard
	config    WatcherConfig
	logger    *slog.Logger
	metrics   observability.Metrics
	now       func() time.Time
}

// NewWatcher creates an announcements watcher.
func NewWatcher(
	feed Feed,
	messenger messaging.Messenger,
	guard *state.Guard,
	config WatcherConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Watcher {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Watcher{
		feed:      feed,
		messenger: messenger,
		guard:     guard,
		config:    config,
		logger:    logger.With("component", "announcements_watcher"),
		metrics:   metrics,
		now:       time.Now,
	}
}

// WithClock returns a copy of w that reads the current time from now.
func (w *Watcher) WithClock(now func() time.Time) *Watcher {
	c := *w
	c.now = now
	return &c
}

// Run executes one check for the scheduler.
func (w *Watcher) Run(ctx context.Context) error {
	_, err := w.Check(ctx)
	return err
}

// Check fetches the feed, posts unseen items and records them. State is
// only written when there was something new and posting did not fail.
func (w *Watcher) Check(ctx context.Context) (CheckResult, error) {
	ctx = observability.WithOperation(observability.EnsureCorrelationID(ctx), "announcements_check")

	var result CheckResult
	err := observability.TimeOperation(ctx, nil, w.metrics, "announcements_check", func(ctx context.Context) error {
		w.logger.InfoContext(ctx, "running announcements watcher")
		items, err := w.feed.FetchLatest(ctx, w.config.Limit)
		if err != nil {
			return fmt.Errorf("fetch announcements: %w", err)
		}
		result.Fetched = len(items)
		return w.guard.Do(ctx, func(ctx context.Context, store state.Store) error {
			return w.record(ctx, store, items, &result)
		})
	})

	w.metrics.Counter(observability.MetricAnnouncementsCycles, 1)
	if err != nil {
		w.metrics.Counter(observability.MetricAnnouncementsErrors, 1)
		w.logger.ErrorContext(ctx, "announcements watcher failed", "error", err)
	}
	return result, err
}

func (w *Watcher) record(ctx context.Context, store state.Store, items []domain.Announcement, result *CheckResult) error {
	st, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	unseen := st.Announcements.Unseen(items)
	result.New = len(unseen)
	if len(unseen) == 0 {
		w.logger.InfoContext(ctx, "no new announcements detected")
		return nil
	}

	posted, err := w.announce(ctx, unseen)
	if err != nil {
		return err
	}
	result.Posted = posted

	st.Announcements = st.Announcements.Remember(unseen)
	if err := store.Write(ctx, st); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// announce posts one message for items. A missing channel is logged and
// reported as not posted.
func (w *Watcher) announce(ctx context.Context, items []domain.Announcement) (bool, error) {
	channel, err := w.messenger.FetchChannel(ctx, w.config.ChannelID)
	if err != nil || channel == nil || !channel.TextBased {
		w.logger.WarnContext(ctx, "announcements channel not found or not text based",
			"channel_id", w.config.ChannelID,
			"error", err,
		)
		return false, nil
	}

	id, err := w.messenger.SendMessage(ctx, channel.ID, AnnouncementMessage(items, w.now()))
	if err != nil {
		return false, fmt.Errorf("post announcements: %w", err)
	}

	w.metrics.Counter(observability.MetricAnnouncementsPosted, int64(min(len(items), maxEmbeds)))
	w.logger.InfoContext(ctx, "announcements published", "message_id", id, "count", len(items))
	return true, nil
}

// AnnouncementMessage renders up to five items as embeds under a @here
// notice.
func AnnouncementMessage(items []domain.Announcement, now time.Time) messaging.Message {
	content := "@here Novo anúncio publicado."
	if len(items) > 1 {
		content = "@here Novos anúncios publicados."
	}

	shown := items[:min(len(items), maxEmbeds)]
	embeds := make([]messaging.Embed, 0, len(shown))
	for _, item := range shown {
		description := "Novo anúncio disponível"
		if item.Date != "" {
			description = "Data: " + item.Date
		}
		embeds = append(embeds, messaging.Embed{
			Title:       item.Title,
			URL:         item.URL,
			Description: description,
			Color:       messaging.ColorAnnouncement,
			Timestamp:   now.UTC().Format(time.RFC3339),
		})
	}

	return messaging.Message{
		Content:         content,
		Embeds:          embeds,
		AllowedMentions: &messaging.AllowedMentions{Parse: []string{"everyone"}},
	}
}
