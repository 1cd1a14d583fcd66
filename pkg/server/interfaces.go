// Package server runs the RAMOSE HTTP gateway with graceful shutdown,
// in-flight request draining, and optional TLS, independent of which
// router adapter (mux or bunrouter) produced the handler.
package server

import (
	"context"
	"net/http"
	"time"
)

// Config holds the configuration for a single web server instance.
type Config struct {
	Name        string
	Host        string
	Port        int
	Description string

	// Handler is the router-produced http.Handler to serve.
	Handler http.Handler

	GZIP bool

	// TLS configuration options, mutually exclusive.
	SSLCert string
	SSLKey  string

	SelfSignedSSL bool

	AutoTLS         bool
	AutoTLSDomains  []string
	AutoTLSCacheDir string
	AutoTLSEmail    string

	// ShutdownTimeout bounds the overall graceful shutdown. Default 30s.
	ShutdownTimeout time.Duration

	// DrainTimeout bounds how long to wait for in-flight requests before
	// forcing shutdown. Default 25s.
	DrainTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Instance is a single running (or stopped) server.
type Instance interface {
	// Start begins serving requests in a background goroutine.
	Start() error

	// Stop gracefully shuts the server down, draining in-flight requests.
	Stop(ctx context.Context) error

	Addr() string
	Name() string

	// HealthCheckHandler responds 200 while running, 503 while shutting down.
	HealthCheckHandler() http.HandlerFunc

	// ReadinessHandler reports in-flight request count alongside readiness.
	ReadinessHandler() http.HandlerFunc

	InFlightRequests() int64
	IsShuttingDown() bool

	// Wait blocks until shutdown completes.
	Wait()
}

// Manager owns the lifecycle of one or more server instances. RAMOSE
// typically registers a single instance, but the interface stays
// multi-instance so a deployment can run an admin server (metrics,
// describe, live log) alongside the public API server.
type Manager interface {
	Add(cfg Config) (Instance, error)
	Get(name string) (Instance, error)
	Remove(name string) error

	StartAll() error
	StopAll() error
	StopAllWithContext(ctx context.Context) error
	RestartAll() error

	List() []Instance

	// ServeWithGracefulShutdown starts every instance and blocks until
	// SIGINT/SIGTERM, then shuts everything down.
	ServeWithGracefulShutdown() error

	RegisterShutdownCallback(cb ShutdownCallback)
}

// ShutdownCallback runs during graceful shutdown, e.g. to flush metrics
// or close the error-tracking provider.
type ShutdownCallback func(context.Context) error
