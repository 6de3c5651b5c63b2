package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus instruments. Register once at
// startup and share the instance.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	JobsSubmitted   *prometheus.CounterVec
	JobsCompleted   *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	JobsInFlight    prometheus.Gauge
	AdapterCalls    *prometheus.CounterVec
	AdapterDuration *prometheus.HistogramVec
	FeedbackLoops   *prometheus.CounterVec
	CacheHits       *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.JobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_jobs_submitted_total",
			Help: "Jobs accepted for async execution",
		},
		[]string{"type"},
	)
	c.JobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_jobs_completed_total",
			Help: "Jobs reaching a terminal status",
		},
		[]string{"type", "status"},
	)
	c.JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_job_duration_seconds",
			Help:    "Wall-clock job execution time",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type"},
	)
	c.JobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_jobs_in_flight",
			Help: "Jobs currently running on the worker pool",
		},
	)
	c.AdapterCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_adapter_calls_total",
			Help: "Generation adapter invocations",
		},
		[]string{"stage", "status"},
	)
	c.AdapterDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_adapter_call_duration_seconds",
			Help:    "Generation adapter call latency",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"stage"},
	)
	c.FeedbackLoops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_feedback_loop_runs_total",
			Help: "Feedback loop executions by outcome",
		},
		[]string{"loop", "status"},
	)
	c.CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_generation_cache_requests_total",
			Help: "Generation cache lookups",
		},
		[]string{"outcome"},
	)

	c.registry.MustRegister(
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
		c.JobsSubmitted,
		c.JobsCompleted,
		c.JobDuration,
		c.JobsInFlight,
		c.AdapterCalls,
		c.AdapterDuration,
		c.FeedbackLoops,
		c.CacheHits,
	)
	return c
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route pattern.
func (c *Collector) Middleware(routePattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == "" {
				route = "unknown"
			}
			c.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			c.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
