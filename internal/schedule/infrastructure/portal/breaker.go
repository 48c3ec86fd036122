package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/campusbot/internal/schedule/application"
	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// ErrCircuitOpen is returned while the breaker rejects portal fetches.
var ErrCircuitOpen = errors.New("portal circuit breaker is open")

// BreakerConfig configures the portal circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before a trial fetch.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Timeout: 30 * time.Minute}
}

// BreakingFetcher guards a Fetcher with a circuit breaker. Reported
// outages count as successes: the portal answered, so the cached
// snapshot path stays in charge.
type BreakingFetcher struct {
	next    application.Fetcher
	breaker *gobreaker.CircuitBreaker[[]domain.Entry]
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewBreakingFetcher wraps next.
func NewBreakingFetcher(next application.Fetcher, cfg BreakerConfig, logger *slog.Logger, metrics observability.Metrics) *BreakingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	f := &BreakingFetcher{
		next:    next,
		logger:  logger.With("component", "portal_breaker"),
		metrics: metrics,
	}
	f.breaker = gobreaker.NewCircuitBreaker[[]domain.Entry](gobreaker.Settings{
		Name:        "portal",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsServiceUnavailable(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			f.metrics.Gauge(observability.MetricPortalBreakerState, breakerGauge(to))
		},
	})
	return f
}

// FetchSchedule delegates to the wrapped fetcher unless the breaker is open.
func (f *BreakingFetcher) FetchSchedule(ctx context.Context, opts application.FetchOptions) ([]domain.Entry, error) {
	entries, err := f.breaker.Execute(func() ([]domain.Entry, error) {
		return f.next.FetchSchedule(ctx, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return entries, err
}

// State returns the breaker state name: closed, half-open or open.
func (f *BreakingFetcher) State() string {
	return f.breaker.State().String()
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

var _ application.Fetcher = (*BreakingFetcher)(nil)
