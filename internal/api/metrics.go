package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
)

// RegisterMetrics initializes the HTTP metrics and returns the handler
// for /metrics.
func RegisterMetrics() http.Handler {
	metricsOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed.",
		}, []string{"method", "path", "status"})

		requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		prometheus.MustRegister(requestsTotal, requestDuration)
	})
	return promhttp.Handler()
}

// WithMetrics instruments requests with a counter and a latency
// histogram.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := normalizePath(r.URL.Path)
		requestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath replaces numeric id segments so label cardinality stays
// bounded.
func normalizePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
