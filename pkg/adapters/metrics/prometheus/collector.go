package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the process metrics registry. It owns a dedicated registry
// carrying the Go runtime and process collectors plus the service metrics.
type Collector struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	poolConnections *prometheus.GaugeVec
	poolAcquires    *prometheus.CounterVec
	bootstraps      prometheus.Counter
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		poolConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_pool_connections",
				Help: "Number of database pool connections by state",
			},
			[]string{"state"},
		),
		poolAcquires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_pool_acquire_total",
				Help: "Total number of connection acquisitions by result",
			},
			[]string{"result"},
		),
		bootstraps: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "users_table_bootstrap_total",
				Help: "Total number of users table bootstraps",
			},
		),
	}
}

// ObserveRequest records one completed HTTP request
func (c *Collector) ObserveRequest(method, route string, statusCode int, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

// RecordPoolStats records connection pool occupancy
func (c *Collector) RecordPoolStats(total, idle, inUse int) {
	c.poolConnections.WithLabelValues("total").Set(float64(total))
	c.poolConnections.WithLabelValues("idle").Set(float64(idle))
	c.poolConnections.WithLabelValues("in_use").Set(float64(inUse))
}

// RecordAcquire counts one connection acquisition with its result
func (c *Collector) RecordAcquire(result string) {
	c.poolAcquires.WithLabelValues(result).Inc()
}

// RecordBootstrap counts one users table bootstrap
func (c *Collector) RecordBootstrap() {
	c.bootstraps.Inc()
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
