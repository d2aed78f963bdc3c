package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector owns the substrate's Prometheus metrics: the registry
// service's HTTP surface, directory mutations, card resolution, the
// invocation client, and topology runs.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registrationsTotal *prometheus.CounterVec
	registeredAgents   prometheus.Gauge

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	cardCacheHits      *prometheus.CounterVec
	cardCacheMisses    *prometheus.CounterVec

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runHops     *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector registers the substrate metric set under namespace with
// reg. A nil registerer uses the default Prometheus registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the registry service",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Registry service request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.registrationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total registry mutations",
		},
		[]string{"operation", "status"}, // operation: register, unregister
	)

	c.registeredAgents = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_agents",
			Help:      "Number of currently registered agents",
		},
	)

	c.resolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_resolutions_total",
			Help:      "Total capability card fetches",
		},
		[]string{"status"},
	)

	c.resolutionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "card_resolution_duration_seconds",
			Help:      "Capability card fetch duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	c.cardCacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_cache_hits_total",
			Help:      "Total card cache hits",
		},
		[]string{"backend"},
	)

	c.cardCacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_cache_misses_total",
			Help:      "Total card cache misses",
		},
		[]string{"backend"},
	)

	c.invocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Total remote agent invocations",
		},
		[]string{"agent", "outcome"},
	)

	c.invocationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Remote invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent"},
	)

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_runs_total",
			Help:      "Total topology runs",
		},
		[]string{"topology", "outcome"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "topology_run_duration_seconds",
			Help:      "Topology run duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"topology"},
	)

	c.runHops = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "topology_run_hops",
			Help:      "Agent invocations per topology run",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"topology"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordHTTPRequest records one registry service request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRegistration records a register/unregister outcome.
func (c *Collector) RecordRegistration(operation, status string) {
	c.registrationsTotal.WithLabelValues(operation, status).Inc()
}

// SetRegisteredAgents tracks the directory size.
func (c *Collector) SetRegisteredAgents(n int) {
	c.registeredAgents.Set(float64(n))
}

// RecordResolution records one capability card fetch.
func (c *Collector) RecordResolution(status string, duration time.Duration) {
	c.resolutionsTotal.WithLabelValues(status).Inc()
	c.resolutionDuration.Observe(duration.Seconds())
}

// RecordCardCacheHit records a card cache hit for the given backend.
func (c *Collector) RecordCardCacheHit(backend string) {
	c.cardCacheHits.WithLabelValues(backend).Inc()
}

// RecordCardCacheMiss records a card cache miss for the given backend.
func (c *Collector) RecordCardCacheMiss(backend string) {
	c.cardCacheMisses.WithLabelValues(backend).Inc()
}

// RecordInvocation records one remote invocation outcome. Shaped to
// slot straight into a2a.InvokeObserver.
func (c *Collector) RecordInvocation(agent, outcome string, elapsed time.Duration) {
	c.invocationsTotal.WithLabelValues(agent, outcome).Inc()
	c.invocationDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
}

// RecordRun records one completed topology run.
func (c *Collector) RecordRun(topology, outcome string, hops int, duration time.Duration) {
	c.runsTotal.WithLabelValues(topology, outcome).Inc()
	c.runDuration.WithLabelValues(topology).Observe(duration.Seconds())
	c.runHops.WithLabelValues(topology).Observe(float64(hops))
}

// statusClass collapses an HTTP status code to its class label.
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
