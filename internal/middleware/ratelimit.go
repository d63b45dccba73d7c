package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stablehq/stablecast/internal/ratelimit"
)

// RateLimit gates a route with a fixed-window budget. The key separates
// subject and action: `user:<id>:<action>` for authenticated requests,
// `anon:<action>` otherwise. Denials are surfaced as 429 with a
// Retry-After hint; every decision exposes the remaining budget and reset
// time as informational headers.
func RateLimit(l *ratelimit.Limiter, action string, preset ratelimit.Preset) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if userID, ok := GetUserID(r.Context()); ok {
				key = ratelimit.UserKey(userID, action)
			} else {
				key = ratelimit.AnonKey(action)
			}

			res := l.CheckPreset(key, preset)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(preset.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(res.RetryAfter(time.Now()).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
