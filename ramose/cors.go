package ramose

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/opencitations/ramose/pkg/config"
)

// CORSConfig configures the CORS headers applied to every response.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows any origin to call a RAMOSE deployment: the
// API it fronts is a read-only proxy over a public SPARQL endpoint, not
// an authenticated backend, so the teacher's host-enumeration approach
// doesn't apply here. AllowCredentials defaults to true, matching
// spec.md §6's requirement that every response carry
// Access-Control-Allow-Credentials: true alongside the wildcard origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// CORSConfigFromConfig converts an operator-supplied config.CORSConfig
// into the CORSConfig the HTTP Adapter applies to every response.
func CORSConfigFromConfig(cc config.CORSConfig) CORSConfig {
	return CORSConfig{
		AllowedOrigins:   cc.AllowedOrigins,
		AllowedMethods:   cc.AllowedMethods,
		AllowedHeaders:   cc.AllowedHeaders,
		AllowCredentials: cc.AllowCredentials,
		MaxAge:           cc.MaxAge,
	}
}

// SetCORSHeaders writes the CORS response headers for cfg.
func SetCORSHeaders(w http.ResponseWriter, cfg CORSConfig) {
	if len(cfg.AllowedOrigins) > 0 {
		w.Header().Set("Access-Control-Allow-Origin", strings.Join(cfg.AllowedOrigins, ", "))
	}
	if len(cfg.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
	}
	if len(cfg.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
	}
	if cfg.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	if cfg.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", cfg.MaxAge))
	}
}

// corsMiddleware applies cfg to every response and short-circuits preflight
// OPTIONS requests.
func corsMiddleware(cfg CORSConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORSHeaders(w, cfg)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
