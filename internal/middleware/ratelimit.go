package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/swa/agilemetrics/internal/auth"
)

// CodeRateLimited is the error code of 429 responses
const CodeRateLimited = "RATE_LIMITED"

// RateLimiter provides sliding-window rate limiting per client key
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateLimiter creates a new rate limiter. Stop must be called to end
// its cleanup goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow records a request for key and reports whether it is within the
// limit, together with the requests left in the current window.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	filtered := rl.active(key, now)

	if len(filtered) >= rl.limit {
		return false, 0
	}

	filtered = append(filtered, now)
	rl.requests[key] = filtered
	return true, rl.limit - len(filtered)
}

// active drops expired requests of key and returns the rest; mu must be held
func (rl *RateLimiter) active(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	history, ok := rl.requests[key]
	if !ok {
		return nil
	}
	filtered := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	rl.requests[key] = filtered
	return filtered
}

// Remaining returns the number of remaining requests
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.limit - len(rl.active(key, rl.now()))
}

// Reset resets the rate limit for a key
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

// Keys returns the number of tracked client keys
func (rl *RateLimiter) Keys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

// cleanup removes idle keys periodically
func (rl *RateLimiter) cleanup() {
	defer close(rl.done)
	interval := rl.window
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key := range rl.requests {
				if len(rl.active(key, now)) == 0 {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// clientKey identifies the caller: the authenticated subject when the
// request passed JWT auth, else the remote IP. Unverified headers are
// never used as keys.
func clientKey(r *http.Request) string {
	if subject, ok := auth.GetSubjectFromContext(r.Context()); ok && subject != "" {
		return "subject:" + subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware provides rate limiting middleware
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	limit := strconv.Itoa(limiter.limit)
	retryAfter := strconv.Itoa(int(limiter.window.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining := limiter.Allow(clientKey(r))

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", time.Now().Add(limiter.window).UTC().Format(http.TimeFormat))

			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      http.StatusText(http.StatusTooManyRequests),
					"message":    "Rate limit exceeded",
					"code":       CodeRateLimited,
					"request_id": GetRequestID(r.Context()),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
