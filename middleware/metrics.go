package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Name: "famportal_rate_limited_total",
	Help: "Requests rejected by a rate limiter",
})

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "famportal_http_requests_total",
	Help: "HTTP requests by route, method and status code",
}, []string{"route", "method", "code"})

var httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "famportal_http_request_duration_seconds",
	Help:    "HTTP request latency by route",
	Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
}, []string{"route", "method"})

// Metrics records request counts and latency labelled by the mux route
// template, so path parameters do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
