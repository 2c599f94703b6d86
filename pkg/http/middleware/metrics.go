package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "github.com/wrenwealth/Archantum/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archantum_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archantum_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"path", "method", "status"},
	)

	httpMetricsOnce sync.Once
)

// Metrics records per-request counters and latencies. Slow or failing
// requests also land in the structured log so the ops surface stays
// observable without a dashboard.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	httpMetricsOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			status := strconv.Itoa(rw.status)
			took := time.Since(start)

			httpRequestsTotal.WithLabelValues(path, r.Method, status).Inc()
			httpRequestDuration.WithLabelValues(path, r.Method, status).Observe(took.Seconds())

			if l == nil {
				return
			}
			if rw.status >= 500 {
				l.Error("http: request failed",
					applogger.String("path", path),
					applogger.String("method", r.Method),
					applogger.String("status", status),
					applogger.Duration("took", took))
			} else if slowThreshold > 0 && took >= slowThreshold {
				l.Warn("http: request slow",
					applogger.String("path", path),
					applogger.String("method", r.Method),
					applogger.String("status", status),
					applogger.Duration("took", took))
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
