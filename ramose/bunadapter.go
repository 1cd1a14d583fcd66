package ramose

import (
	"net/http"

	"github.com/uptrace/bunrouter"
)

// NewBunHandler builds the github.com/uptrace/bunrouter equivalent of
// NewMuxHandler: the same operator endpoints registered explicitly, a
// wildcard catch-all falling through to the Operation Executor for
// everything else. RAMOSE ships both router bindings so an operator can
// pick whichever the rest of their stack already standardizes on,
// mirroring bitechdev-ResolveSpec's SetupMuxRoutes/SetupBunRouterRoutes
// pair.
func NewBunHandler(m *Manager) http.Handler {
	r := bunrouter.New()

	r.Handle(http.MethodGet, "/healthz", bunWrap(healthzHandler))
	r.Handle(http.MethodGet, "/ramose/describe", bunWrap(m.describeHandler))
	r.Handle(http.MethodGet, "/ramose/live", bunWrap(m.log.HandleWebSocket))
	r.Handle(http.MethodGet, "/metrics", bunWrapHandler(metricsHandler()))

	// RAMOSE's routes come from loaded Hash-Format configurations, not
	// from compile-time registration, so bunrouter (unlike the operator
	// endpoints above) needs a single wildcard catch-all handing every
	// other path straight to the Operation Executor, which owns the real
	// route match against the Route Table.
	catchAll := bunWrap(m.ServeOperation)
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead} {
		r.Handle(method, "/*path", catchAll)
	}

	return corsMiddleware(m.CORS, r)
}

// bunWrap adapts a plain http.HandlerFunc to bunrouter's
// func(http.ResponseWriter, bunrouter.Request) error signature.
func bunWrap(fn http.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		fn(w, req.Request)
		return nil
	}
}

// bunWrapHandler adapts a plain http.Handler the same way bunWrap adapts
// a HandlerFunc.
func bunWrapHandler(h http.Handler) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		h.ServeHTTP(w, req.Request)
		return nil
	}
}
