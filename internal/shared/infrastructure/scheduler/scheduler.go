// Package scheduler runs recurring tasks on a cron expression with a
// random delay added to every tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// DefaultCron fires at the top of every hour.
const DefaultCron = "0 * * * *"

// ErrInvalidCron is returned for expressions that are not 5-field cron.
var ErrInvalidCron = errors.New("invalid cron expression")

// Task is a named unit of recurring work.
type Task struct {
	Name   string
	Run    func(ctx context.Context) error
	Jitter time.Duration
}

// Config configures a Scheduler.
type Config struct {
	Cron     string
	Location *time.Location
	// RunOnStart runs every task once before waiting for the first tick.
	RunOnStart bool
}

// Scheduler runs each task in its own goroutine. A task never overlaps
// with itself: the next tick is computed only after the previous run
// returns.
type Scheduler struct {
	config  Config
	tasks   []Task
	logger  *slog.Logger
	metrics observability.Metrics

	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
	jitter func(time.Duration) time.Duration

	wg sync.WaitGroup
}

// ValidateCron checks that expr is a 5-field cron expression.
func ValidateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return fmt.Errorf("%w %q, expected minute hour day-of-month month day-of-week", ErrInvalidCron, expr)
	}
	return nil
}

// New creates a scheduler.
func New(config Config, logger *slog.Logger, metrics observability.Metrics) (*Scheduler, error) {
	if config.Cron == "" {
		config.Cron = DefaultCron
	}
	if err := ValidateCron(config.Cron); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Scheduler{
		config:  config,
		logger:  logger.With("component", "scheduler"),
		metrics: metrics,
		now:     time.Now,
		after:   time.After,
		jitter:  uniformJitter,
	}, nil
}

// Add registers a task. Tasks added after Start are not run.
func (s *Scheduler) Add(task Task) {
	s.tasks = append(s.tasks, task)
}

// Tasks returns the names of the registered tasks.
func (s *Scheduler) Tasks() []string {
	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name)
	}
	return names
}

// Start launches one loop per task. Loops exit when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go func(task Task) {
			defer s.wg.Done()
			s.loop(ctx, task)
		}(task)
	}
	s.logger.InfoContext(ctx, "scheduler started",
		"cron", s.config.Cron,
		"timezone", s.config.Location.String(),
		"tasks", s.Tasks(),
	)
}

// Wait blocks until every loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Run starts the scheduler and blocks until ctx is cancelled and all
// in-flight runs have returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.Start(ctx)
	<-ctx.Done()
	s.Wait()
	s.logger.Info("scheduler stopped")
}

// Next returns when task should next run after ref: the next cron tick
// in the configured location plus the task's jitter.
func (s *Scheduler) Next(ref time.Time, task Task) (time.Time, error) {
	tick, err := gronx.NextTickAfter(s.config.Cron, ref.In(s.config.Location), false)
	if err != nil {
		return time.Time{}, fmt.Errorf("next tick for %s: %w", task.Name, err)
	}
	return tick.Add(s.jitter(task.Jitter)), nil
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	logger := s.logger.With("task", task.Name)

	if s.config.RunOnStart {
		s.execute(ctx, logger, task)
	}

	for {
		if ctx.Err() != nil {
			return
		}
		next, err := s.Next(s.now(), task)
		if err != nil {
			logger.ErrorContext(ctx, "cannot compute next run, stopping task", "error", err)
			return
		}
		delay := max(next.Sub(s.now()), 0)
		logger.DebugContext(ctx, "next run scheduled", "at", next, "in", delay.Round(time.Second))

		select {
		case <-ctx.Done():
			return
		case <-s.after(delay):
		}
		s.execute(ctx, logger, task)
	}
}

// execute runs task once. Errors and panics are logged; the loop keeps
// going either way.
func (s *Scheduler) execute(ctx context.Context, logger *slog.Logger, task Task) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Counter(observability.MetricSchedulerPanics, 1, observability.T("task", task.Name))
			logger.ErrorContext(ctx, "task panicked", "panic", r)
		}
	}()

	s.metrics.Counter(observability.MetricSchedulerRuns, 1, observability.T("task", task.Name))
	if err := task.Run(ctx); err != nil {
		logger.ErrorContext(ctx, "task failed", "error", err)
	}
}

func uniformJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}
