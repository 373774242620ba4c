package middleware

import (
	"net/http"
	"time"
)

const unmatchedRoute = "unmatched"

type requestObserver interface {
	Observe(method, route string, status int, duration time.Duration)
}

// Metrics records request count and latency labelled by the matched chi route
// pattern, keeping label cardinality independent of path parameters.
func Metrics(obs requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			route := matchedPattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			obs.Observe(r.Method, route, rec.statusCode(), time.Since(start))
		})
	}
}
