package engine

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labelens/labelens/internal/core"
)

// Rate limit defaults for client admission.
const (
	DefaultClientLimit  = 10
	DefaultClientWindow = time.Minute
	DefaultIdleTTL      = 10 * time.Minute
)

// ClientLimiter admits per-client requests under a sliding window: a request
// is allowed when fewer than Limit requests were admitted in the trailing
// Window. Rejected attempts are never recorded, so a client hammering the
// endpoint recovers as fast as one that backs off.
type ClientLimiter struct {
	Limit   int
	Window  time.Duration
	IdleTTL time.Duration
	Clock   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastSeen   time.Time
}

// Decision reports the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// NewClientLimiter builds a limiter with defaults applied for unset fields.
func NewClientLimiter(limit int, window, idleTTL time.Duration) *ClientLimiter {
	if limit <= 0 {
		limit = DefaultClientLimit
	}
	if window <= 0 {
		window = DefaultClientWindow
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &ClientLimiter{
		Limit:   limit,
		Window:  window,
		IdleTTL: idleTTL,
		clients: make(map[string]*clientWindow),
	}
}

// Admit records and allows the request if the client is under its limit.
// The client map lock is only held long enough to find or create the entry;
// pruning and admission run under the per-client lock.
func (l *ClientLimiter) Admit(clientID string) Decision {
	now := l.now()
	cw := l.windowFor(clientID)

	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.pruneExpired(now, l.Window)
	cw.lastSeen = now

	if len(cw.timestamps) >= l.Limit {
		resetAt := cw.timestamps[0].Add(l.Window)
		return Decision{
			Allowed:    false,
			Limit:      l.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	cw.timestamps = append(cw.timestamps, now)
	return Decision{
		Allowed:   true,
		Limit:     l.Limit,
		Remaining: l.Limit - len(cw.timestamps),
		ResetAt:   cw.timestamps[0].Add(l.Window),
	}
}

// Reset clears a client's window. It reports whether the client was known.
func (l *ClientLimiter) Reset(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.clients[clientID]
	delete(l.clients, clientID)
	return ok
}

// ResetAll drops every tracked client.
func (l *ClientLimiter) ResetAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.clients)
	l.clients = make(map[string]*clientWindow)
	return n
}

// Snapshot returns the current state of all tracked clients, sorted by id.
func (l *ClientLimiter) Snapshot() []core.ClientWindow {
	now := l.now()

	l.mu.Lock()
	ids := make([]string, 0, len(l.clients))
	windows := make([]*clientWindow, 0, len(l.clients))
	for id, cw := range l.clients {
		ids = append(ids, id)
		windows = append(windows, cw)
	}
	l.mu.Unlock()

	result := make([]core.ClientWindow, 0, len(ids))
	for i, id := range ids {
		cw := windows[i]
		cw.mu.Lock()
		cw.pruneExpired(now, l.Window)
		entry := core.ClientWindow{
			ClientID: id,
			Used:     len(cw.timestamps),
			Limit:    l.Limit,
			LastSeen: cw.lastSeen,
		}
		if len(cw.timestamps) > 0 {
			entry.ResetAt = cw.timestamps[0].Add(l.Window)
		}
		cw.mu.Unlock()
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClientID < result[j].ClientID })
	return result
}

// Sweep removes clients idle longer than IdleTTL and returns how many were
// dropped. Callers run it on a ticker; it is safe alongside Admit.
func (l *ClientLimiter) Sweep() int {
	now := l.now()
	cutoff := now.Add(-l.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for id, cw := range l.clients {
		cw.mu.Lock()
		idle := cw.lastSeen.Before(cutoff)
		cw.mu.Unlock()
		if idle {
			delete(l.clients, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps idle clients until the stop channel closes.
func (l *ClientLimiter) Run(stop <-chan struct{}) {
	interval := l.IdleTTL
	if interval <= 0 {
		interval = DefaultIdleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *ClientLimiter) windowFor(clientID string) *clientWindow {
	clientID = strings.TrimSpace(clientID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.clients == nil {
		l.clients = make(map[string]*clientWindow)
	}
	cw, ok := l.clients[clientID]
	if !ok {
		cw = &clientWindow{}
		l.clients[clientID] = cw
	}
	return cw
}

func (cw *clientWindow) pruneExpired(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(cw.timestamps); i++ {
		if cw.timestamps[i].After(cutoff) {
			break
		}
	}
	cw.timestamps = cw.timestamps[i:]
}

func (l *ClientLimiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
