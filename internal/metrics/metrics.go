package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AuthAttempts counts signup/login outcomes (success, invalid, conflict, error).
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of signup and login attempts by outcome",
		},
		[]string{"op", "outcome"},
	)

	// CatalogFetches counts upstream catalog calls by list and outcome (ok, error).
	CatalogFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetches_total",
			Help: "Total number of catalog list fetches",
		},
		[]string{"list", "outcome"},
	)

	// ActivityPruned counts auth activity rows removed by the retention job.
	ActivityPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_activity_pruned_total",
			Help: "Total number of auth activity rows pruned",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, AuthAttempts, CatalogFetches, ActivityPruned)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncAuth records one signup or login outcome.
func IncAuth(op, outcome string) {
	AuthAttempts.WithLabelValues(op, outcome).Inc()
}

// IncCatalogFetch records one catalog call.
func IncCatalogFetch(list string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	CatalogFetches.WithLabelValues(list, outcome).Inc()
}

// AddActivityPruned adds n to the pruned rows counter.
func AddActivityPruned(n int64) {
	if n > 0 {
		ActivityPruned.Add(float64(n))
	}
}
