package ramose

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewMuxHandler builds the gorilla/mux router: it owns the operator
// endpoints explicitly, and falls through every other path to the
// Operation Executor via m.ServeOperation. RAMOSE's routing proper is
// data-driven by the loaded Hash-Format documents rather than
// code-registered patterns, so mux here plays the role of a thin static
// front door rather than a full route table.
func NewMuxHandler(m *Manager) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/ramose/describe", m.describeHandler).Methods(http.MethodGet)
	r.HandleFunc("/ramose/live", m.log.HandleWebSocket)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)

	r.PathPrefix("/").HandlerFunc(m.ServeOperation)

	return corsMiddleware(m.CORS, r)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
