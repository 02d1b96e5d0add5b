package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/labelens/labelens/internal/core"
)

type memoryRateStore struct {
	state map[string]*core.RateLimitState
}

func (m *memoryRateStore) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	if m.state == nil {
		return nil, nil
	}
	if val, ok := m.state[endpoint]; ok {
		return val, nil
	}
	return nil, nil
}

func (m *memoryRateStore) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	if m.state == nil {
		m.state = make(map[string]*core.RateLimitState)
	}
	m.state[endpoint] = state
	return nil
}

func TestUpstreamLimiterWindow(t *testing.T) {
	store := &memoryRateStore{}
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &UpstreamLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"anthropic": {RequestsPerWindow: 1, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return clock },
	}

	allowed, _, err := limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(context.Background(), "anthropic"))

	allowed, wait, err := limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, time.Minute, wait)
}

func TestUpstreamLimiterBackoff(t *testing.T) {
	store := &memoryRateStore{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &UpstreamLimiter{
		Store: store,
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Record429(context.Background(), "anthropic", 30*time.Second))

	allowed, wait, err := limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, wait)

	now = now.Add(31 * time.Second)
	allowed, _, err = limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestUpstreamLimiterWindowResets(t *testing.T) {
	store := &memoryRateStore{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &UpstreamLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"anthropic": {RequestsPerWindow: 2, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Record(context.Background(), "anthropic"))
	require.NoError(t, limiter.Record(context.Background(), "anthropic"))

	allowed, _, err := limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.False(t, allowed)

	now = now.Add(2 * time.Minute)
	allowed, _, err = limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestUpstreamLimiterSafetyMargin(t *testing.T) {
	limiter := &UpstreamLimiter{
		Limits: map[string]RateLimit{
			"anthropic": {RequestsPerWindow: 10, WindowDuration: time.Minute},
		},
	}
	limiter.ApplySafetyMargin(0.5)

	limit := limiter.getLimit("anthropic")
	require.Equal(t, 5, limit.RequestsPerWindow)
}

func TestUpstreamLimiterOverrides(t *testing.T) {
	limiter := &UpstreamLimiter{}
	limiter.ApplyOverrides(map[string]int{"anthropic": 3, "": 9, "bad": -1})

	limit := limiter.getLimit("anthropic")
	require.Equal(t, 3, limit.RequestsPerWindow)
	require.Equal(t, time.Minute, limit.WindowDuration)
}

func TestUpstreamLimiterNilStoreAllows(t *testing.T) {
	var limiter *UpstreamLimiter
	allowed, wait, err := limiter.Allow(context.Background(), "anthropic")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, wait)
}
