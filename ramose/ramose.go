// Package ramose wires the Configuration Model & Route Table, the
// Operation Executor, and the Addon Loader into a single HTTP handler,
// and exposes the operator-facing endpoints (health, describe, live
// log) that sit alongside the configured operations.
package ramose

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opencitations/ramose/internal/addon"
	"github.com/opencitations/ramose/internal/executor"
	"github.com/opencitations/ramose/internal/routetable"
	"github.com/opencitations/ramose/pkg/logger"
	"github.com/opencitations/ramose/pkg/metrics"
)

// Manager owns a loaded RouteTable and its Executor, and builds the
// http.Handler that serves both the configured operations and the
// operator endpoints.
type Manager struct {
	Routes   *routetable.RouteTable
	Addons   *addon.Registry
	Executor *executor.Executor
	CORS     CORSConfig
	log      *LiveLog
}

// NewManager builds a Manager from specPaths (Hash-Format documents,
// loaded in order) against addons. A single RouteTable aggregates every
// configuration, so a request is matched against configurations in load
// order, first pattern match wins.
func NewManager(specPaths []string, addons *addon.Registry, fetchTimeout time.Duration) (*Manager, error) {
	routes := &routetable.RouteTable{}
	for _, path := range specPaths {
		conf, err := routetable.Load(path, addons)
		if err != nil {
			return nil, err
		}
		routes.Add(conf)
	}

	exec := executor.New(routes, addons)
	if fetchTimeout > 0 {
		exec.FetchTimeout = fetchTimeout
	}

	return &Manager{
		Routes:   routes,
		Addons:   addons,
		Executor: exec,
		CORS:     DefaultCORSConfig(),
		log:      NewLiveLog(256),
	}, nil
}

// Handler builds the complete http.Handler using the default
// gorilla/mux router. Equivalent to m.HandlerWithRouter("mux").
func (m *Manager) Handler() http.Handler {
	return NewMuxHandler(m)
}

// HandlerWithRouter builds the complete http.Handler on top of the
// named router binding ("mux" or "bunrouter"), carrying the operator
// endpoints and falling through to the Operation Executor for
// everything else. An unrecognized name falls back to "mux".
func (m *Manager) HandlerWithRouter(router string) http.Handler {
	if router == "bunrouter" {
		return NewBunHandler(m)
	}
	return NewMuxHandler(m)
}

// ServeOperation runs the Operation Executor for one inbound request
// and writes its Result (or classified Error) to w.
func (m *Manager) ServeOperation(w http.ResponseWriter, r *http.Request) {
	req := executor.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Accept: r.Header.Get("Accept"),
	}

	start := time.Now()
	result, err := m.Executor.Execute(r.Context(), req)
	if err != nil {
		m.writeError(w, r, err)
		metrics.GetProvider().RecordHTTPRequest(r.Method, r.URL.Path, "error", time.Since(start))
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(result.Status)
	if _, werr := w.Write(result.Body); werr != nil {
		logger.Warn("failed to write response body: %v", werr)
	}
	metrics.GetProvider().RecordHTTPRequest(r.Method, r.URL.Path, "ok", time.Since(start))
	m.log.Publish(r.Method, r.URL.Path, result.Status)
}

// errorFormat decides how to wrap an error body: "plain" unless the
// caller explicitly asked for csv or json, via the format query param or
// an Accept header naming one of them. Unlike the success path (which
// defaults to JSON when neither is given), an unspecified format leaves
// errors as text/plain, per spec.md §6.
func errorFormat(q, accept string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "csv" || q == "json" {
		return q
	}
	if strings.Contains(accept, "text/csv") {
		return "csv"
	}
	if strings.Contains(accept, "application/json") {
		return "json"
	}
	return "plain"
}

// writeError serializes a classified Executor failure per spec.md §6: a
// text/plain body beginning "HTTP status code <n>:" by default, or the
// same status/message wrapped as CSV ("error,message" columns) or JSON
// ({"error":code,"message":...}) when the caller explicitly asked for
// that format (format query param or Accept header).
func (m *Manager) writeError(w http.ResponseWriter, r *http.Request, err error) {
	execErr, ok := err.(*executor.Error)
	status := http.StatusInternalServerError
	message := err.Error()
	if ok {
		status = execErr.Status
		message = execErr.Message
	}

	logger.Warn("operation error for %s %s: %v", r.Method, r.URL.Path, err)
	m.log.Publish(r.Method, r.URL.Path, status)

	plain := fmt.Sprintf("HTTP status code %d: %s", status, message)
	format := errorFormat(r.URL.Query().Get("format"), r.Header.Get("Accept"))

	switch format {
	case "csv":
		var buf strings.Builder
		cw := csv.NewWriter(&buf)
		_ = cw.Write([]string{"error", "message"})
		_ = cw.Write([]string{fmt.Sprintf("%d", status), message})
		cw.Flush()
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		_, werr := w.Write([]byte(buf.String()))
		if werr != nil {
			logger.Warn("failed to write error response: %v", werr)
		}
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		body := fmt.Sprintf(`{"error":%d,"message":"%s"}`, status, jsonEscape(message))
		if _, werr := w.Write([]byte(body)); werr != nil {
			logger.Warn("failed to write error response: %v", werr)
		}
	default:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		if _, werr := w.Write([]byte(plain)); werr != nil {
			logger.Warn("failed to write error response: %v", werr)
		}
	}
}

func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			out = append(out, '\\', s[i])
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
