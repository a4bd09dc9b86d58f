package middleware

import (
	"net/http"
	"time"

	"github.com/crucial707/cinebrowse/internal/metrics"
)

// Prometheus records request duration and count. Scrapes of /metrics are not counted.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/metrics" {
			return
		}
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		metrics.RecordRequest(r.Method, path, rec.status, time.Since(start).Seconds())
	})
}
