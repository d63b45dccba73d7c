// Package ratelimit implements a fixed-window request limiter keyed by
// subject and action.
//
// The store is in-memory and scoped to a single process instance. Running
// multiple instances behind a load balancer gives each instance its own
// budget; that is an accepted scope boundary, not a bug to paper over with
// a shared backing store.
package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = 5 * time.Minute

// Result is the outcome of one Check call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
// Only meaningful when Allowed is false.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Preset is a named (window, max) policy. Selection is the caller's job;
// the limiter itself treats every key identically.
type Preset struct {
	Window time.Duration
	Max    int
}

var (
	// Public covers anonymous marketing and auth-screen traffic.
	Public = Preset{Window: time.Minute, Max: 30}
	// Authenticated covers dashboard API traffic.
	Authenticated = Preset{Window: time.Minute, Max: 120}
	// Upload covers document and photo uploads.
	Upload = Preset{Window: time.Hour, Max: 20}
	// Admin covers the admin panel, which polls statistics aggressively.
	Admin = Preset{Window: time.Minute, Max: 300}
	// AI covers AI-backed endpoints, which are expensive upstream.
	AI = Preset{Window: time.Hour, Max: 50}
)

// UserKey derives the limiter key for an authenticated subject and action.
func UserKey(userID int64, action string) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":" + action
}

// AnonKey derives the limiter key for anonymous traffic on an action.
func AnonKey(action string) string {
	return "anon:" + action
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter tracks consumption per key within fixed windows.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	stopCh  chan struct{}

	now func() time.Time
}

// New creates a Limiter and starts its background sweep.
func New(cleanupInterval time.Duration) *Limiter {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	l := &Limiter{
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	go l.cleanup(cleanupInterval)
	return l
}

// Check records one request against key and reports whether it is allowed.
// A missing or expired entry starts a fresh window. Denied requests do not
// consume budget.
func (l *Limiter) Check(key string, window time.Duration, max int) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !e.resetAt.After(now) {
		e = &entry{count: 1, resetAt: now.Add(window)}
		l.entries[key] = e
		return Result{Allowed: true, Remaining: max - 1, ResetAt: e.resetAt}
	}

	if e.count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}

	e.count++
	return Result{Allowed: true, Remaining: max - e.count, ResetAt: e.resetAt}
}

// CheckPreset is Check with a named policy.
func (l *Limiter) CheckPreset(key string, p Preset) Result {
	return l.Check(key, p.Window, p.Max)
}

// Stop terminates the background sweep.
func (l *Limiter) Stop() {
	close(l.stopCh)
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

// sweep deletes entries whose window has already expired, bounding the
// store to active keys.
func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if !e.resetAt.After(now) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
