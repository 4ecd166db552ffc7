package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for rulekit.
//
// A nil *Metrics, or one built from a disabled config, records nothing.
type Metrics struct {
	config MetricsConfig

	// Persistence metrics
	persistOps       *prometheus.CounterVec
	persistDuration  *prometheus.HistogramVec
	persistResources *prometheus.HistogramVec
	rollbacks        *prometheus.CounterVec

	// Container metrics
	parseFallbacks prometheus.Counter

	// Rule metrics
	ruleExecutions *prometheus.CounterVec
	ruleDuration   *prometheus.HistogramVec
	actionErrors   *prometheus.CounterVec

	// Store metrics
	entityWrites *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		persistOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_operations_total",
				Help:      "Total number of container save and delete operations",
			},
			[]string{"operation", "status"},
		),
		persistDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "persist_duration_seconds",
				Help:      "Duration of container save and delete operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		persistResources: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "persist_resources",
				Help:      "Number of resources written per transaction",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
			[]string{"operation"},
		),
		rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_rollbacks_total",
				Help:      "Total number of rolled back persistence transactions",
			},
			[]string{"operation"},
		),

		parseFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "input_parse_fallbacks_total",
				Help:      "Total number of multi-line inputs read with the flat parser",
			},
		),

		ruleExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_executions_total",
				Help:      "Total number of rule executions",
			},
			[]string{"rule", "status"},
		),
		ruleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rule_duration_seconds",
				Help:      "Duration of rule executions in seconds",
				Buckets:   buckets,
			},
			[]string{"rule"},
		),
		actionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_errors_total",
				Help:      "Total number of failed rule actions",
			},
			[]string{"action"},
		),

		entityWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_written_total",
				Help:      "Total number of entity writes",
			},
			[]string{"type", "operation"},
		),
	}

	registry.MustRegister(
		m.persistOps,
		m.persistDuration,
		m.persistResources,
		m.rollbacks,
		m.parseFallbacks,
		m.ruleExecutions,
		m.ruleDuration,
		m.actionErrors,
		m.entityWrites,
	)

	return m, nil
}

// Persistence Metrics

// RecordPersist records one container save or delete with its outcome.
func (m *Metrics) RecordPersist(operation, status string, resources int, duration time.Duration) {
	if m == nil || m.persistOps == nil {
		return
	}
	m.persistOps.WithLabelValues(operation, status).Inc()
	m.persistDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.persistResources.WithLabelValues(operation).Observe(float64(resources))
}

// RecordRollback records a rolled back persistence transaction.
func (m *Metrics) RecordRollback(operation string) {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.WithLabelValues(operation).Inc()
}

// Container Metrics

// RecordParseFallback records a multi-line input that was not valid
// structured text.
func (m *Metrics) RecordParseFallback() {
	if m == nil || m.parseFallbacks == nil {
		return
	}
	m.parseFallbacks.Inc()
}

// Rule Metrics

// RecordRuleExecution records a finished rule with its status and duration.
func (m *Metrics) RecordRuleExecution(rule, status string, duration time.Duration) {
	if m == nil || m.ruleExecutions == nil {
		return
	}
	m.ruleExecutions.WithLabelValues(rule, status).Inc()
	m.ruleDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

// RecordActionError records a failed rule action.
func (m *Metrics) RecordActionError(action string) {
	if m == nil || m.actionErrors == nil {
		return
	}
	m.actionErrors.WithLabelValues(action).Inc()
}

// Store Metrics

// RecordEntityWrite records an entity save or delete.
func (m *Metrics) RecordEntityWrite(entityType, operation string) {
	if m == nil || m.entityWrites == nil {
		return
	}
	m.entityWrites.WithLabelValues(entityType, operation).Inc()
}

// Registry returns the registry metrics are registered on, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if m == nil || !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("address", m.config.ListenAddress).Msg("Metrics server stopped")
		}
	}()

	return nil
}
