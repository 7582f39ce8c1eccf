package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medirank/medirank-api/internal/metrics"
)

// Metrics records request counts and latencies labelled by the matched route
// template. It must be installed with mux.Router.Use so the route is known.
func Metrics(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.ObserveHTTP(r.Method, route, rec.code(), time.Since(start))
		})
	}
}
