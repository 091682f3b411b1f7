// Package metrics exposes Prometheus instrumentation for Modelbay.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelbay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelbay_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 180},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelbay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	runInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelbay_run_invocations_total",
			Help: "Total number of artifact executions",
		},
		[]string{"artifact", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelbay_run_duration_seconds",
			Help:    "Artifact execution time in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 180},
		},
		[]string{"artifact"},
	)

	jobsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "modelbay_jobs",
			Help: "Number of tracked jobs by state",
		},
		[]string{"state"},
	)

	jobQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelbay_job_queue_depth",
			Help: "Number of jobs waiting for a worker",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func IncrementInFlight() {
	httpRequestsInFlight.Inc()
}

func DecrementInFlight() {
	httpRequestsInFlight.Dec()
}

func RecordRun(artifact, status string, duration time.Duration) {
	runInvocations.WithLabelValues(artifact, status).Inc()
	runDuration.WithLabelValues(artifact).Observe(duration.Seconds())
}

func UpdateJobStats(queued, running, completed, failed int) {
	jobsByState.WithLabelValues("queued").Set(float64(queued))
	jobsByState.WithLabelValues("running").Set(float64(running))
	jobsByState.WithLabelValues("completed").Set(float64(completed))
	jobsByState.WithLabelValues("failed").Set(float64(failed))
}

func UpdateQueueDepth(depth int) {
	jobQueueDepth.Set(float64(depth))
}
