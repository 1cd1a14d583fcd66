package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements Provider using github.com/prometheus/client_golang.
type PrometheusProvider struct {
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	requestsInFlight   prometheus.Gauge
	remoteFetchSeconds *prometheus.HistogramVec
	remoteFetchTotal   *prometheus.CounterVec
	panicsTotal        *prometheus.CounterVec
}

// NewPrometheusProvider builds the Prometheus collectors. A nil cfg
// uses DefaultConfig.
func NewPrometheusProvider(cfg *Config) *PrometheusProvider {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.ApplyDefaults()
	}

	metricName := func(name string) string {
		if cfg.Namespace != "" {
			return cfg.Namespace + "_" + name
		}
		return name
	}

	return &PrometheusProvider{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricName("http_request_duration_seconds"),
				Help:    "HTTP request duration in seconds",
				Buckets: cfg.HTTPRequestBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricName("http_requests_total"),
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: metricName("http_requests_in_flight"),
				Help: "Current number of HTTP requests being processed",
			},
		),
		remoteFetchSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricName("remote_fetch_duration_seconds"),
				Help:    "Remote SPARQL endpoint fetch duration in seconds",
				Buckets: cfg.RemoteFetchBuckets,
			},
			[]string{"base_url"},
		),
		remoteFetchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricName("remote_fetch_total"),
				Help: "Total number of remote SPARQL endpoint fetches",
			},
			[]string{"base_url", "status"},
		),
		panicsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricName("panics_total"),
				Help: "Total number of recovered panics",
			},
			[]string{"method"},
		),
	}
}

func (p *PrometheusProvider) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	p.requestTotal.WithLabelValues(method, path, status).Inc()
}

func (p *PrometheusProvider) IncRequestsInFlight() { p.requestsInFlight.Inc() }
func (p *PrometheusProvider) DecRequestsInFlight() { p.requestsInFlight.Dec() }

func (p *PrometheusProvider) RecordRemoteFetch(baseURL string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.remoteFetchSeconds.WithLabelValues(baseURL).Observe(duration.Seconds())
	p.remoteFetchTotal.WithLabelValues(baseURL, status).Inc()
}

func (p *PrometheusProvider) RecordPanic(methodName string) {
	p.panicsTotal.WithLabelValues(methodName).Inc()
}

func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code
// written, so the outer HTTP middleware can label RecordHTTPRequest.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns an http.Handler wrapper recording request count,
// latency, and in-flight gauge for every call.
func (p *PrometheusProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		p.IncRequestsInFlight()
		defer p.DecRequestsInFlight()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		p.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode), time.Since(start))
	})
}
