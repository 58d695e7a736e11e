package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanRequests counts planning calls by algorithm and outcome
	PlanRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_requests_total", Help: "Planning calls by algorithm and outcome."},
		[]string{"algorithm", "status"},
	)
	// PlanDuration records planning latency in seconds per algorithm
	PlanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "plan_duration_seconds", Help: "Planning call duration in seconds.", Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30}},
		[]string{"algorithm"},
	)
	// DijkstraRuns counts shortest-path precompute runs
	DijkstraRuns = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dijkstra_runs_total", Help: "Single-source shortest-path runs performed."},
	)
	// OrderingsEvaluated tracks how many waypoint orderings the exact optimizer walked per call
	OrderingsEvaluated = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_orderings_evaluated", Help: "Waypoint orderings evaluated per exact planning call.", Buckets: []float64{1, 2, 6, 24, 120, 720, 5040, 40320}},
	)
	// CacheLookups counts plan cache lookups by result
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_cache_lookups_total", Help: "Plan cache lookups by result."},
		[]string{"result"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanRequests)
		Registry.MustRegister(PlanDuration)
		Registry.MustRegister(DijkstraRuns)
		Registry.MustRegister(OrderingsEvaluated)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
