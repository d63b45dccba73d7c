package middleware

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// FloodGuardConfig holds connection flood protection settings.
type FloodGuardConfig struct {
	// RatePerSecond is the sustained connection-attempt rate per IP.
	RatePerSecond int
	// Burst is the max attempts allowed in a burst per IP.
	Burst int
	// CleanupInterval is how often idle limiters are dropped.
	CleanupInterval time.Duration
	// MaxAge is how long to keep a limiter after last use.
	MaxAge time.Duration
}

// DefaultFloodGuardConfig returns sensible defaults.
func DefaultFloodGuardConfig() FloodGuardConfig {
	return FloodGuardConfig{
		RatePerSecond:   5,
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// floodGuardEntry holds a limiter and its last access time.
type floodGuardEntry struct {
	limiter      *rate.Limiter
	lastSeenNano atomic.Int64
}

// FloodGuard is a per-IP token bucket in front of the streaming endpoints.
// The fixed-window limiter budgets API actions; this guard only stops
// connect storms from exhausting the broker's connection registry.
type FloodGuard struct {
	config   FloodGuardConfig
	limiters sync.Map // map[string]*floodGuardEntry
	stopCh   chan struct{}
}

// NewFloodGuard creates a FloodGuard and starts its cleanup goroutine.
func NewFloodGuard(config FloodGuardConfig) *FloodGuard {
	g := &FloodGuard{
		config: config,
		stopCh: make(chan struct{}),
	}
	go g.cleanup()
	return g
}

func (g *FloodGuard) cleanup() {
	ticker := time.NewTicker(g.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			g.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*floodGuardEntry)
				lastSeen := time.Unix(0, entry.lastSeenNano.Load())
				if now.Sub(lastSeen) > g.config.MaxAge {
					g.limiters.Delete(key)
				}
				return true
			})
		case <-g.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine.
func (g *FloodGuard) Stop() {
	close(g.stopCh)
}

// Allow checks whether a connection attempt from ip is permitted.
func (g *FloodGuard) Allow(ip string) bool {
	now := time.Now().UnixNano()

	if val, ok := g.limiters.Load(ip); ok {
		entry := val.(*floodGuardEntry)
		entry.lastSeenNano.Store(now)
		return entry.limiter.Allow()
	}

	entry := &floodGuardEntry{
		limiter: rate.NewLimiter(rate.Limit(g.config.RatePerSecond), g.config.Burst),
	}
	entry.lastSeenNano.Store(now)
	actual, _ := g.limiters.LoadOrStore(ip, entry)
	return actual.(*floodGuardEntry).limiter.Allow()
}

// Guard rejects connection attempts from IPs exceeding the bucket.
func (g *FloodGuard) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}

		if !g.Allow(ip) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many connection attempts"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
