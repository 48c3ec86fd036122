package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("no checks is healthy", func(t *testing.T) {
		r := NewHealthRegistry()
		assert.Equal(t, HealthStatusHealthy, r.GetOverallHealth(ctx).Status)
	})

	t.Run("worst status wins", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("store", StoreHealthChecker("file", func(context.Context) error { return nil }))
		r.Register("portal", BreakerHealthChecker("portal", func() string { return "open" }))

		health := r.GetOverallHealth(ctx)

		assert.Equal(t, HealthStatusDegraded, health.Status)
		require.Len(t, health.Checks, 2)
		assert.Equal(t, HealthStatusHealthy, health.Checks["store"].Status)
	})

	t.Run("store failure is unhealthy", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("store", StoreHealthChecker("redis", func(context.Context) error { return errors.New("refused") }))
		r.Check(ctx)

		assert.Equal(t, HealthStatusUnhealthy, r.OverallStatus())
		assert.Contains(t, r.LastResults()["store"].Message, "refused")
	})

	t.Run("check one", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("portal", BreakerHealthChecker("portal", func() string { return "closed" }))

		result, ok := r.CheckOne(ctx, "portal")
		require.True(t, ok)
		assert.Equal(t, HealthStatusHealthy, result.Status)

		_, ok = r.CheckOne(ctx, "missing")
		assert.False(t, ok)
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("portal", BreakerHealthChecker("portal", func() string { return "open" }))
		r.Unregister("portal")
		assert.Empty(t, r.Check(ctx))
	})
}

func TestFreshnessHealthChecker(t *testing.T) {
	ctx := context.Background()
	at := func(ts time.Time, err error) func(context.Context) (time.Time, error) {
		return func(context.Context) (time.Time, error) { return ts, err }
	}

	assert.Equal(t, HealthStatusHealthy,
		FreshnessHealthChecker("schedule", at(time.Now().Add(-time.Minute), nil), time.Hour)(ctx).Status)
	assert.Equal(t, HealthStatusDegraded,
		FreshnessHealthChecker("schedule", at(time.Now().Add(-3*time.Hour), nil), time.Hour)(ctx).Status)
	assert.Equal(t, HealthStatusDegraded,
		FreshnessHealthChecker("schedule", at(time.Time{}, nil), time.Hour)(ctx).Status)
	assert.Equal(t, HealthStatusDegraded,
		FreshnessHealthChecker("schedule", at(time.Time{}, errors.New("boom")), time.Hour)(ctx).Status)
}

func TestOverallHealthToJSON(t *testing.T) {
	h := OverallHealth{Status: HealthStatusHealthy, Checks: map[string]HealthCheckResult{}}
	data, err := h.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"healthy"`)
}
