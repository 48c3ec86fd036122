package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/campusbot/internal/messaging"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/internal/schedule/render"
	"github.com/felixgeelhaar/campusbot/internal/state"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// WatcherConfig configures the schedule watcher.
type WatcherConfig struct {
	ChannelID string
}

// Watcher reconciles the portal schedule with the channel messages.
type Watcher struct {
	fetcher   Fetcher
	messenger messaging.Messenger
	guard     *state.Guard
	formatter *render.Formatter
	config    WatcherConfig
	logger    *slog.Logger
	metrics   observability.Metrics
	now       func() time.Time
}

// NewWatcher creates a schedule watcher.
func NewWatcher(
	fetcher Fetcher,
	messenger messaging.Messenger,
	guard *state.Guard,
	formatter *render.Formatter,
	config WatcherConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if formatter == nil {
		formatter = render.NewFormatter(time.UTC)
	}
	return &Watcher{
		fetcher:   fetcher,
		messenger: messenger,
		guard:     guard,
		formatter: formatter,
		config:    config,
		logger:    logger.With("component", "schedule_watcher"),
		metrics:   metrics,
		now:       formatter.Now,
	}
}

// Run executes one schedule check. State is read once and written once,
// even when a step fails. Errors are logged before being returned.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = observability.WithOperation(observability.EnsureCorrelationID(ctx), "schedule_check")
	err := observability.TimeOperation(ctx, nil, w.metrics, "schedule_check", func(ctx context.Context) error {
		return w.guard.Do(ctx, w.run)
	})

	w.metrics.Counter(observability.MetricScheduleCycles, 1)
	if err != nil {
		w.metrics.Counter(observability.MetricScheduleErrors, 1)
		w.logger.ErrorContext(ctx, "schedule watcher failed", "error", err)
	}
	return err
}

func (w *Watcher) run(ctx context.Context, store state.Store) (err error) {
	w.logger.InfoContext(ctx, "running schedule watcher")
	attemptAt := w.now()

	st, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	c := newCycle(st.Schedule, attemptAt)
	defer func() {
		st.Schedule = c.persisted()
		if writeErr := store.Write(ctx, st); writeErr != nil {
			err = errors.Join(err, fmt.Errorf("write state: %w", writeErr))
		}
	}()

	for _, step := range []func(context.Context, cycle) (cycle, error){
		w.fetchCurrentWeek,
		w.lookAhead,
		w.hash,
		w.publish,
	} {
		c, err = step(ctx, c)
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) fetchCurrentWeek(ctx context.Context, c cycle) (cycle, error) {
	entries, err := w.fetcher.FetchSchedule(ctx, FetchOptions{WeekOffset: 0})
	switch {
	case err == nil:
		return c.withFetched(entries), nil
	case domain.IsServiceUnavailable(err):
		w.metrics.Counter(observability.MetricScheduleUnavailable, 1)
		if c.previous.HasCache() {
			w.logger.WarnContext(ctx, "portal unavailable, using cached schedule snapshot", "error", err)
		} else {
			w.logger.WarnContext(ctx, "portal unavailable and no cached schedule entries found", "error", err)
		}
		return c.withCache(nil), nil
	default:
		return c, fmt.Errorf("fetch current week: %w", err)
	}
}

// lookAhead loads next week when every fetched entry is already in the past.
func (w *Watcher) lookAhead(ctx context.Context, c cycle) (cycle, error) {
	if c.degraded || len(c.entries) == 0 || domain.HasUpcoming(c.entries, w.now()) {
		return c, nil
	}

	w.logger.InfoContext(ctx, "all retrieved schedule entries are in the past, loading next week")
	next, err := w.fetcher.FetchSchedule(ctx, FetchOptions{WeekOffset: 1})
	switch {
	case err == nil:
		if len(next) == 0 {
			w.logger.InfoContext(ctx, "next week has no entries, keeping current week")
			return c, nil
		}
		return c.withFetched(next), nil
	case domain.IsServiceUnavailable(err):
		w.metrics.Counter(observability.MetricScheduleUnavailable, 1)
		if c.previous.HasCache() {
			w.logger.WarnContext(ctx, "portal became unavailable while loading next week, using cached schedule snapshot")
		} else {
			w.logger.WarnContext(ctx, "portal became unavailable while loading next week, keeping current week")
		}
		return c.withCache(c.entries), nil
	default:
		return c, fmt.Errorf("fetch next week: %w", err)
	}
}

func (w *Watcher) hash(ctx context.Context, c cycle) (cycle, error) {
	c = c.withHash()
	added, updated, removed := c.diff.Counts()
	w.logger.DebugContext(ctx, "schedule diff computed",
		"entries", len(c.entries),
		"added", added,
		"updated", updated,
		"removed", removed,
		"hash_changed", c.hashChanged(),
		"degraded", c.degraded,
	)
	return c, nil
}

// publish upserts the schedule message and, when the gate passed, the
// change message.
func (w *Watcher) publish(ctx context.Context, c cycle) (cycle, error) {
	channel, err := w.messenger.FetchChannel(ctx, w.config.ChannelID)
	if err != nil || channel == nil || !channel.TextBased {
		w.logger.WarnContext(ctx, "schedule channel not found or not text based",
			"channel_id", w.config.ChannelID,
			"error", err,
		)
		return c, nil
	}

	res, err := messaging.Upsert(ctx, w.messenger, w.logger, channel.ID, c.previous.MessageID,
		w.formatter.ScheduleMessage(c.entries, c.degraded))
	if err != nil {
		return c, fmt.Errorf("post schedule message: %w", err)
	}
	c.messageID = res.MessageID
	c.postedSchedule = res.Posted

	switch {
	case c.announce:
		c, err = w.publishChanges(ctx, c, channel.ID)
		if err != nil {
			return c, err
		}
	case c.firstRun():
		w.logger.InfoContext(ctx, "initial schedule snapshot stored")
	case c.hashChanged():
		w.logger.InfoContext(ctx, "schedule hash changed but no actionable differences detected")
	default:
		w.logger.InfoContext(ctx, "no schedule changes detected")
	}

	if c.postedSchedule && c.firstRun() {
		w.logger.InfoContext(ctx, "schedule embed initialized", "message_id", c.messageID)
	}

	c.completed = true
	return c, nil
}

func (w *Watcher) publishChanges(ctx context.Context, c cycle, channelID string) (cycle, error) {
	msg, ok := w.formatter.ChangeMessage(c.diff)
	if !ok {
		w.logger.WarnContext(ctx, "schedule changed but no diff summary could be generated")
		return c, nil
	}

	res, err := messaging.Upsert(ctx, w.messenger, w.logger, channelID, c.previous.ChangeMessageID, msg)
	if err != nil {
		return c, fmt.Errorf("post schedule change message: %w", err)
	}
	c.changeMessageID = res.MessageID

	added, updated, removed := c.diff.Counts()
	w.metrics.Counter(observability.MetricScheduleChanges, int64(added+updated+removed))
	w.logger.InfoContext(ctx, "schedule change published",
		"message_id", res.MessageID,
		"added", added,
		"updated", updated,
		"removed", removed,
	)
	return c, nil
}
