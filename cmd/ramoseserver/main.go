// Command ramoseserver boots a RAMOSE gateway process from a config
// file: it loads the route table, registers addons, and serves the
// Operation Executor behind graceful shutdown until signaled to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/opencitations/ramose/addon/example"
	"github.com/opencitations/ramose/internal/addon"
	"github.com/opencitations/ramose/internal/routecache"
	"github.com/opencitations/ramose/pkg/config"
	"github.com/opencitations/ramose/pkg/errortracking"
	"github.com/opencitations/ramose/pkg/logger"
	"github.com/opencitations/ramose/pkg/metrics"
	"github.com/opencitations/ramose/pkg/middleware"
	"github.com/opencitations/ramose/pkg/server"
	"github.com/opencitations/ramose/pkg/tracing"
	"github.com/opencitations/ramose/ramose"
)

func main() {
	cfgMgr := config.NewManager()
	if err := cfgMgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg, err := cfgMgr.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logger.Dev)
	if cfg.Logger.Path != "" {
		logger.UpdateLoggerPath(cfg.Logger.Path, cfg.Logger.Dev)
	}
	logger.Info("RAMOSE starting")

	if tracker, err := errortracking.NewProviderFromConfig(cfg.ErrorTracking); err != nil {
		logger.Error("Failed to initialize error tracking: %v", err)
	} else {
		logger.InitErrorTracking(tracker)
	}
	defer logger.CloseErrorTracking()

	if cfg.Metrics.Enabled {
		metrics.SetProvider(metrics.NewPrometheusProvider(&metrics.Config{
			Namespace:          cfg.Metrics.Namespace,
			HTTPRequestBuckets: cfg.Metrics.HTTPRequestBuckets,
			RemoteFetchBuckets: cfg.Metrics.RemoteFetchBuckets,
		}))
	}

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Endpoint:       cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		os.Exit(1)
	}

	if len(cfg.RouteTable.SpecPaths) == 0 {
		logger.Error("no route_table.spec_paths configured")
		os.Exit(1)
	}

	addons := addon.NewRegistry()
	example.Register(addons)

	mgr, err := ramose.NewManager(cfg.RouteTable.SpecPaths, addons, cfg.Server.FetchTimeout)
	if err != nil {
		logger.Error("Failed to load route table: %v", err)
		os.Exit(1)
	}
	mgr.Executor.Stage = tracing.StageHook
	mgr.CORS = ramose.CORSConfigFromConfig(cfg.CORS)

	var handler http.Handler = mgr.HandlerWithRouter(cfg.Server.Router)
	if cfg.Middleware.MaxRequestSize > 0 {
		handler = middleware.NewRequestSizeLimiter(cfg.Middleware.MaxRequestSize).Middleware(handler)
	}

	switch cfg.DistributedRateLimit.Provider {
	case "redis":
		store, err := routecache.NewRedisProvider(routecache.RedisConfig(cfg.DistributedRateLimit.Redis))
		if err != nil {
			logger.Error("Failed to connect distributed rate limit store: %v", err)
			os.Exit(1)
		}
		handler = middleware.NewDistributedRateLimiter(store, cfg.DistributedRateLimit.Limit, cfg.DistributedRateLimit.Window).Middleware(handler)
	case "memcache":
		store := routecache.NewMemcacheProvider(cfg.DistributedRateLimit.Memcache.Servers...)
		handler = middleware.NewDistributedRateLimiter(store, cfg.DistributedRateLimit.Limit, cfg.DistributedRateLimit.Window).Middleware(handler)
	default:
		if cfg.Middleware.RateLimitRPS > 0 {
			handler = middleware.NewRateLimiter(cfg.Middleware.RateLimitRPS, cfg.Middleware.RateLimitBurst).Middleware(handler)
		}
	}

	blacklist := middleware.NewIPBlacklist(middleware.BlacklistConfig{UseProxy: true})
	handler = blacklist.Middleware(handler)
	handler = middleware.PanicRecovery(handler)
	if cfg.Tracing.Enabled {
		handler = tracing.Middleware(handler)
	}

	srvMgr := server.NewManager()
	srvMgr.RegisterShutdownCallback(func(ctx context.Context) error {
		return shutdownTracing(ctx)
	})

	if _, err := srvMgr.Add(server.FromConfig(cfg.Server, handler)); err != nil {
		logger.Error("Failed to add server: %v", err)
		os.Exit(1)
	}

	logger.Info("RAMOSE listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srvMgr.ServeWithGracefulShutdown(); err != nil {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
}
