package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Manager handles configuration loading from a YAML file plus
// environment variable overrides.
type Manager struct {
	v *viper.Viper
}

// NewManager creates a configuration manager with RAMOSE's defaults.
func NewManager() *Manager {
	v := viper.New()

	v.SetConfigName("ramose")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ramose")
	v.AddConfigPath("$HOME/.ramose")

	v.SetEnvPrefix("RAMOSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &Manager{v: v}
}

// NewManagerWithOptions applies functional options on top of the
// defaults returned by NewManager.
func NewManagerWithOptions(opts ...Option) *Manager {
	m := NewManager()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfigFile pins an exact config file path.
func WithConfigFile(path string) Option {
	return func(m *Manager) { m.v.SetConfigFile(path) }
}

// WithConfigName overrides the config file base name.
func WithConfigName(name string) Option {
	return func(m *Manager) { m.v.SetConfigName(name) }
}

// WithConfigPath adds a directory to search for the config file.
func WithConfigPath(path string) Option {
	return func(m *Manager) { m.v.AddConfigPath(path) }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(m *Manager) { m.v.SetEnvPrefix(prefix) }
}

// Load reads the config file if present; a missing file is not an
// error since every setting has a default.
func (m *Manager) Load() error {
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: error reading config file: %w", err)
		}
	}
	return nil
}

// GetConfig unmarshals the loaded values into a Config.
func (m *Manager) GetConfig() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return &cfg, nil
}

func (m *Manager) Get(key string) interface{} { return m.v.Get(key) }
func (m *Manager) GetString(key string) string { return m.v.GetString(key) }
func (m *Manager) GetInt(key string) int       { return m.v.GetInt(key) }
func (m *Manager) GetBool(key string) bool     { return m.v.GetBool(key) }
func (m *Manager) Set(key string, value interface{}) { m.v.Set(key, value) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.router", "mux")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.drain_timeout", "25s")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.fetch_timeout", "30s")

	v.SetDefault("route_table.spec_paths", []string{})

	v.SetDefault("logger.dev", false)
	v.SetDefault("logger.path", "")

	v.SetDefault("error_tracking.enabled", false)
	v.SetDefault("error_tracking.provider", "noop")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "ramose")
	v.SetDefault("metrics.http_request_buckets", []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5})
	v.SetDefault("metrics.remote_fetch_buckets", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20})

	v.SetDefault("middleware.rate_limit_rps", 50.0)
	v.SetDefault("middleware.rate_limit_burst", 100)
	v.SetDefault("middleware.max_request_size", 1048576) // 1MB

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 3600)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "ramose")
	v.SetDefault("tracing.service_version", "1.0.0")
	v.SetDefault("tracing.endpoint", "")

	v.SetDefault("distributed_rate_limit.provider", "none")
	v.SetDefault("distributed_rate_limit.limit", 100)
	v.SetDefault("distributed_rate_limit.window", "1m")
	v.SetDefault("distributed_rate_limit.redis.host", "localhost")
	v.SetDefault("distributed_rate_limit.redis.port", 6379)
	v.SetDefault("distributed_rate_limit.redis.db", 0)
	v.SetDefault("distributed_rate_limit.memcache.servers", []string{"localhost:11211"})
	v.SetDefault("distributed_rate_limit.memcache.max_idle_conns", 10)
	v.SetDefault("distributed_rate_limit.memcache.timeout", "100ms")
}
