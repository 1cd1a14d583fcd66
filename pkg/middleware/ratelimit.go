package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client-IP token bucket in front of the
// Operation Executor. RAMOSE's Non-goals exclude caller authentication,
// but a basic rate limit protects the configured remote SPARQL
// endpoint from being hammered through the proxy.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
}

// NewRateLimiter builds a limiter allowing rps requests per second per
// IP, with burst as the bucket size.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		cleanup:  5 * time.Minute,
	}
	go rl.cleanupRoutine()
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = limiter
	return limiter
}

func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		rl.limiters = make(map[string]*rate.Limiter)
		rl.mu.Unlock()
	}
}

// Middleware applies the limiter keyed by client IP, honoring
// X-Forwarded-For/X-Real-IP when present.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)
		if !rl.getLimiter(key).Allow() {
			http.Error(w, `{"error":"rate_limit_exceeded","message":"Too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitInfo reports one IP's current token bucket state.
type RateLimitInfo struct {
	IP              string  `json:"ip"`
	TokensRemaining float64 `json:"tokens_remaining"`
	Limit           float64 `json:"limit"`
	Burst           int     `json:"burst"`
}

// GetTrackedIPs returns every IP currently holding a bucket.
func (rl *RateLimiter) GetTrackedIPs() []string {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	ips := make([]string, 0, len(rl.limiters))
	for ip := range rl.limiters {
		ips = append(ips, ip)
	}
	return ips
}

// GetRateLimitInfo reports the state for one IP, tracked or not.
func (rl *RateLimiter) GetRateLimitInfo(ip string) *RateLimitInfo {
	rl.mu.RLock()
	limiter, exists := rl.limiters[ip]
	rl.mu.RUnlock()

	if !exists {
		return &RateLimitInfo{IP: ip, TokensRemaining: float64(rl.burst), Limit: float64(rl.rate), Burst: rl.burst}
	}
	return &RateLimitInfo{IP: ip, TokensRemaining: limiter.Tokens(), Limit: float64(rl.rate), Burst: rl.burst}
}

// StatsHandler exposes the current rate-limit state, optionally scoped
// to a single IP via ?ip=.
func (rl *RateLimiter) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ip := r.URL.Query().Get("ip"); ip != "" {
			json.NewEncoder(w).Encode(rl.GetRateLimitInfo(ip))
			return
		}

		ips := rl.GetTrackedIPs()
		info := make([]*RateLimitInfo, 0, len(ips))
		for _, ip := range ips {
			info = append(info, rl.GetRateLimitInfo(ip))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"total_tracked_ips": len(info),
			"rate_limit_config": map[string]interface{}{
				"requests_per_second": float64(rl.rate),
				"burst":               rl.burst,
			},
			"tracked_ips": info,
		})
	})
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
