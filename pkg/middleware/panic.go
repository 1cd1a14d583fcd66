package middleware

import (
	"net/http"

	"github.com/opencitations/ramose/pkg/logger"
	"github.com/opencitations/ramose/pkg/metrics"
)

const panicMiddlewareMethodName = "PanicMiddleware"

// PanicRecovery recovers a panic from any handler further down the
// chain, records it, logs it, and responds 500 instead of crashing the
// process — the only place in RAMOSE a single bad request is allowed to
// take down the whole server.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rcv := recover(); rcv != nil {
				metrics.GetProvider().RecordPanic(panicMiddlewareMethodName)
				err := logger.HandlePanic(panicMiddlewareMethodName, rcv)
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
