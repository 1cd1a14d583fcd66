package ramose

import (
	"net/http"

	"github.com/opencitations/ramose/pkg/metrics"
)

// metricsHandler returns the active metrics provider's /metrics handler.
func metricsHandler() http.Handler {
	return metrics.GetProvider().Handler()
}
