package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/opencitations/ramose/internal/routecache"
)

// DistributedRateLimiter enforces a per-client-IP fixed-window request
// limit shared across every RAMOSE process that points at the same
// routecache.Provider, unlike RateLimiter's in-process token bucket.
// Operators pick this one over RateLimiter when running more than one
// RAMOSE instance behind a load balancer and want them to agree on one
// inbound limit per caller.
type DistributedRateLimiter struct {
	store  routecache.Provider
	limit  int64
	window time.Duration
}

// NewDistributedRateLimiter returns a limiter allowing limit requests
// per window per client IP, counted through store.
func NewDistributedRateLimiter(store routecache.Provider, limit int64, window time.Duration) *DistributedRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &DistributedRateLimiter{store: store, limit: limit, window: window}
}

// Middleware rejects a request with 429 once its client IP has made
// more than limit requests in the current window.
func (d *DistributedRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		key := routecache.Key(ip, d.window)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		count, err := d.store.Incr(ctx, key, d.window)
		cancel()
		if err != nil {
			// The shared counter store is unavailable; fail open rather
			// than block every caller behind a single dependency outage.
			next.ServeHTTP(w, r)
			return
		}

		if count > d.limit {
			http.Error(w, `{"error":"rate_limit_exceeded","message":"Too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
