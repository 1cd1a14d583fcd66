// Package metrics exposes a pluggable metrics Provider recording the
// two things operators of a RAMOSE deployment care about: HTTP request
// latency/volume at the adapter boundary, and remote SPARQL fetch
// latency/failures at the Operation Executor's sole suspension point.
package metrics

import (
	"net/http"
	"time"
)

// Provider defines the interface every metrics backend implements.
type Provider interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	IncRequestsInFlight()
	DecRequestsInFlight()
	RecordRemoteFetch(baseURL string, duration time.Duration, err error)
	RecordPanic(methodName string)
	Handler() http.Handler
}

var globalProvider Provider

// SetProvider installs the process-wide metrics provider.
func SetProvider(p Provider) { globalProvider = p }

// GetProvider returns the installed provider, or a NoOpProvider if none
// was set.
func GetProvider() Provider {
	if globalProvider == nil {
		return &NoOpProvider{}
	}
	return globalProvider
}

// NoOpProvider discards every recorded metric.
type NoOpProvider struct{}

func (n *NoOpProvider) RecordHTTPRequest(method, path, status string, duration time.Duration) {}
func (n *NoOpProvider) IncRequestsInFlight()                                                  {}
func (n *NoOpProvider) DecRequestsInFlight()                                                  {}
func (n *NoOpProvider) RecordRemoteFetch(baseURL string, duration time.Duration, err error)   {}
func (n *NoOpProvider) RecordPanic(methodName string)                                         {}

func (n *NoOpProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("metrics provider not configured"))
	})
}
