package core

import "time"

// RateLimitState captures per-endpoint upstream rate limiting state.
type RateLimitState struct {
	RequestCount int
	WindowStart  time.Time
	BackoffUntil *time.Time
	Last429At    *time.Time
}

// ClientWindow is an admin view of one client's rate limit window.
type ClientWindow struct {
	ClientID string
	Used     int
	Limit    int
	ResetAt  time.Time
	LastSeen time.Time
}
