package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/templui/repcycle/internal/metrics"
)

// Metrics records request count and latency per route pattern. It must be the
// innermost middleware so the ServeMux fills in r.Pattern on the request it sees.
func Metrics(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.GaugeRequests.Inc()
			defer m.GaugeRequests.Dec()

			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.CounterRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			m.HistRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
