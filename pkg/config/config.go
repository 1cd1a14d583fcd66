// Package config defines RAMOSE's ambient configuration surface —
// everything other than the route table itself, which is loaded
// separately by internal/routetable from the paths this config names.
package config

import "time"

// Config is the complete process configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	RouteTable    RouteTableConfig    `mapstructure:"route_table"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	ErrorTracking ErrorTrackingConfig `mapstructure:"error_tracking"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Middleware    MiddlewareConfig    `mapstructure:"middleware"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
	DistributedRateLimit DistributedRateLimitConfig `mapstructure:"distributed_rate_limit"`
}

// ServerConfig holds HTTP server wiring.
type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Addr            string        `mapstructure:"addr"`
	Router          string        `mapstructure:"router"` // "mux" or "bunrouter"
	GZIP            bool          `mapstructure:"gzip"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DrainTimeout    time.Duration `mapstructure:"drain_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`

	// TLS options, mutually exclusive; an empty TLS section serves plain HTTP.
	SSLCert       string `mapstructure:"ssl_cert"`
	SSLKey        string `mapstructure:"ssl_key"`
	SelfSignedSSL bool   `mapstructure:"self_signed_ssl"`
	AutoTLS       bool   `mapstructure:"auto_tls"`
	AutoTLSDomains []string `mapstructure:"auto_tls_domains"`
	AutoTLSCacheDir string `mapstructure:"auto_tls_cache_dir"`
	AutoTLSEmail    string `mapstructure:"auto_tls_email"`
}

// RouteTableConfig names the Hash-Format configuration documents
// RAMOSE loads into its route table at startup.
type RouteTableConfig struct {
	SpecPaths []string `mapstructure:"spec_paths"`
}

// LoggerConfig configures the zap-backed logger.
type LoggerConfig struct {
	Dev  bool   `mapstructure:"dev"`
	Path string `mapstructure:"path"`
}

// ErrorTrackingConfig selects and configures the error-tracking
// provider.
type ErrorTrackingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Provider         string  `mapstructure:"provider"` // sentry, noop
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	Debug            bool    `mapstructure:"debug"`
	SampleRate       float64 `mapstructure:"sample_rate"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// MetricsConfig configures the Prometheus metrics provider.
type MetricsConfig struct {
	Enabled             bool      `mapstructure:"enabled"`
	Namespace           string    `mapstructure:"namespace"`
	HTTPRequestBuckets  []float64 `mapstructure:"http_request_buckets"`
	RemoteFetchBuckets  []float64 `mapstructure:"remote_fetch_buckets"`
}

// MiddlewareConfig configures the per-IP rate limiter and request size
// guard sitting in front of the Operation Executor.
type MiddlewareConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRequestSize int64   `mapstructure:"max_request_size"`
}

// CORSConfig configures the CORS headers applied to every response.
// AllowCredentials defaults to true (see pkg/config/manager.go), matching
// spec.md §6's requirement that every response carry
// Access-Control-Allow-Credentials: true alongside the wildcard origin.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// TracingConfig configures OpenTelemetry export of inbound request spans
// and of the Operation Executor stages wrapped by tracing.StageHook.
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Endpoint       string `mapstructure:"endpoint"`
}

// DistributedRateLimitConfig selects an optional shared counter store
// (internal/routecache) so several RAMOSE processes behind a load
// balancer enforce one inbound rate limit per client IP instead of one
// per process. This backs *inbound* rate limiting only — RAMOSE's
// Non-goals exclude caching *remote SPARQL results*, which this does
// not touch. Provider defaults to "none", which leaves the in-process
// middleware.RateLimiter as the only limiter.
type DistributedRateLimitConfig struct {
	Provider string         `mapstructure:"provider"` // none, redis, memcache
	Limit    int64          `mapstructure:"limit"`
	Window   time.Duration  `mapstructure:"window"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Memcache MemcacheConfig `mapstructure:"memcache"`
}

// RedisConfig configures a Redis-backed counter store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MemcacheConfig configures a Memcache-backed counter store.
type MemcacheConfig struct {
	Servers      []string      `mapstructure:"servers"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	Timeout      time.Duration `mapstructure:"timeout"`
}
