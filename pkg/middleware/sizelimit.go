package middleware

import (
	"fmt"
	"net/http"
)

const (
	// DefaultMaxRequestSize bounds an inbound request body when the
	// operator config doesn't override it.
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	// MaxRequestSizeHeader reports the active limit to the caller.
	MaxRequestSizeHeader = "X-Max-Request-Size"
)

// RequestSizeLimiter caps request body size. RAMOSE requests carry no
// body beyond the occasional POST form, so the default is intentionally
// tight compared to a general-purpose API gateway.
type RequestSizeLimiter struct {
	maxSize int64
}

// NewRequestSizeLimiter returns a limiter enforcing maxSize bytes,
// falling back to DefaultMaxRequestSize when maxSize <= 0.
func NewRequestSizeLimiter(maxSize int64) *RequestSizeLimiter {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	return &RequestSizeLimiter{maxSize: maxSize}
}

// Middleware enforces the size limit on every request body.
func (rsl *RequestSizeLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, rsl.maxSize)
		w.Header().Set(MaxRequestSizeHeader, fmt.Sprintf("%d", rsl.maxSize))
		next.ServeHTTP(w, r)
	})
}
