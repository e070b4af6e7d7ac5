package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nutrilog"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path"},
	)

	mealWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "meals",
			Name:      "writes_total",
			Help:      "Meal store writes by operation and result.",
		},
		[]string{"operation", "result"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Summary cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)

	amqpPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "published_total",
			Help:      "Sync messages published by type and result.",
		},
		[]string{"type", "result"},
	)

	sheetsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "sync_total",
			Help:      "Sheets mirror operations by kind and result.",
		},
		[]string{"kind", "result"},
	)

	healthAPI = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health_api",
			Name:      "requests_total",
			Help:      "Health API lookups by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	suspicious = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "security",
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the security detector.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		mealWrites,
		cacheLookups,
		amqpPublished,
		sheetsSync,
		healthAPI,
		rateLimited,
		suspicious,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := CanonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordMealWrite(operation string, err error) {
	mealWrites.WithLabelValues(operation, result(err == nil)).Inc()
}

func RecordCacheLookup(cache string, hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	cacheLookups.WithLabelValues(cache, r).Inc()
}

func RecordPublish(msgType string, err error) {
	amqpPublished.WithLabelValues(msgType, result(err == nil)).Inc()
}

func RecordSheetsSync(kind string, err error) {
	sheetsSync.WithLabelValues(kind, result(err == nil)).Inc()
}

func RecordHealthAPI(endpoint string, err error) {
	healthAPI.WithLabelValues(endpoint, result(err == nil)).Inc()
}

func RecordRateLimited() {
	rateLimited.Inc()
}

func RecordSuspicious(reason string) {
	suspicious.WithLabelValues(reason).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	dateSegment    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// CanonicalPath collapses ids and dates so label cardinality stays bounded.
func CanonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		switch {
		case dateSegment.MatchString(p):
			parts[i] = "{date}"
		case numericSegment.MatchString(p):
			parts[i] = "{id}"
		}
	}
	if parts[0] != "api" && len(parts) > 1 {
		parts = parts[:1]
	}
	return "/" + strings.Join(parts, "/")
}
