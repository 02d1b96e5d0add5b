package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int, window time.Duration, clock *time.Time) *ClientLimiter {
	l := NewClientLimiter(limit, window, 10*time.Minute)
	l.Clock = func() time.Time { return *clock }
	return l
}

func TestClientLimiterExhaustsQuota(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(10, time.Minute, &now)

	for i := 0; i < 10; i++ {
		decision := limiter.Admit("client-a")
		require.True(t, decision.Allowed, "request %d", i)
		require.Equal(t, 10-(i+1), decision.Remaining)
	}

	decision := limiter.Admit("client-a")
	require.False(t, decision.Allowed)
	require.Equal(t, 0, decision.Remaining)
	require.Equal(t, time.Minute, decision.RetryAfter)
}

func TestClientLimiterSlidingRecovery(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(10, time.Minute, &now)

	// Five requests at t=0, five at t=30s.
	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("c").Allowed)
	}
	now = now.Add(30 * time.Second)
	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("c").Allowed)
	}
	require.False(t, limiter.Admit("c").Allowed)

	// At t=61s the first five have slid out; exactly five slots free.
	now = now.Add(31 * time.Second)
	for i := 0; i < 5; i++ {
		require.True(t, limiter.Admit("c").Allowed, "request %d", i)
	}
	require.False(t, limiter.Admit("c").Allowed)
}

func TestClientLimiterRejectionsNotRecorded(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(2, time.Minute, &now)

	require.True(t, limiter.Admit("c").Allowed)
	require.True(t, limiter.Admit("c").Allowed)

	// Hammering while limited must not extend the lockout.
	for i := 0; i < 100; i++ {
		now = now.Add(100 * time.Millisecond)
		require.False(t, limiter.Admit("c").Allowed)
	}

	now = now.Add(time.Minute)
	require.True(t, limiter.Admit("c").Allowed)
}

func TestClientLimiterIndependentClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(1, time.Minute, &now)

	require.True(t, limiter.Admit("alpha").Allowed)
	require.False(t, limiter.Admit("alpha").Allowed)
	require.True(t, limiter.Admit("beta").Allowed)
}

func TestClientLimiterReset(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(1, time.Minute, &now)

	require.True(t, limiter.Admit("c").Allowed)
	require.False(t, limiter.Admit("c").Allowed)

	require.True(t, limiter.Reset("c"))
	require.False(t, limiter.Reset("c"))
	require.True(t, limiter.Admit("c").Allowed)
}

func TestClientLimiterSweepDropsIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewClientLimiter(10, time.Minute, 5*time.Minute)
	limiter.Clock = func() time.Time { return now }

	limiter.Admit("idle")
	now = now.Add(6 * time.Minute)
	limiter.Admit("active")

	require.Equal(t, 1, limiter.Sweep())

	snapshot := limiter.Snapshot()
	require.Len(t, snapshot, 1)
	require.Equal(t, "active", snapshot[0].ClientID)
}

func TestClientLimiterSnapshot(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(10, time.Minute, &now)

	limiter.Admit("b")
	limiter.Admit("a")
	limiter.Admit("a")

	snapshot := limiter.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, "a", snapshot[0].ClientID)
	require.Equal(t, 2, snapshot[0].Used)
	require.Equal(t, "b", snapshot[1].ClientID)
	require.Equal(t, 1, snapshot[1].Used)
	require.Equal(t, now.Add(time.Minute), snapshot[0].ResetAt)
}

func TestClientLimiterConcurrentAdmit(t *testing.T) {
	limiter := NewClientLimiter(50, time.Minute, 10*time.Minute)

	done := make(chan int, 8)
	for g := 0; g < 8; g++ {
		go func(g int) {
			allowed := 0
			for i := 0; i < 25; i++ {
				if limiter.Admit(fmt.Sprintf("client-%d", g%2)).Allowed {
					allowed++
				}
			}
			done <- allowed
		}(g)
	}

	total := 0
	for g := 0; g < 8; g++ {
		total += <-done
	}
	// Two clients, 50 slots each, 100 attempts each.
	require.Equal(t, 100, total)
}
