//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/labelens/labelens/internal/config"
	"github.com/labelens/labelens/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRateLimitRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	missing, err := store.GetRateLimit(ctx, "anthropic")
	require.NoError(t, err)
	require.Nil(t, missing)

	windowStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	backoff := windowStart.Add(30 * time.Second)
	state := &core.RateLimitState{
		RequestCount: 7,
		WindowStart:  windowStart,
		BackoffUntil: &backoff,
	}
	require.NoError(t, store.UpdateRateLimit(ctx, "anthropic", state))

	got, err := store.GetRateLimit(ctx, "anthropic")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 7, got.RequestCount)
	require.Equal(t, windowStart, got.WindowStart)
	require.NotNil(t, got.BackoffUntil)
	require.Equal(t, backoff, *got.BackoffUntil)
	require.Nil(t, got.Last429At)
}

func TestRateLimitAdminListAndReset(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, endpoint := range []string{"anthropic", "anthropic-backup", "other"} {
		require.NoError(t, store.UpdateRateLimit(ctx, endpoint, &core.RateLimitState{
			RequestCount: 1,
			WindowStart:  now,
		}))
	}

	entries, err := store.ListRateLimits(ctx, RateLimitQuery{Prefix: "anthropic"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "anthropic", entries[0].Endpoint)

	count, err := store.CountRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, 3, count)

	affected, err := store.ResetRateLimits(ctx, RateLimitQuery{Endpoint: "other"})
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	count, err = store.CountRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
