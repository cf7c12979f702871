package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls metric registration
type Config struct {
	Enabled   bool
	Namespace string
	Subsystem string

	// EvaluationDurationBuckets are histogram buckets in seconds
	EvaluationDurationBuckets []float64
}

// DefaultConfig returns the default metrics configuration
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "conditions",
		Subsystem: "workflow",
	}
}

// Collector records condition group evaluation metrics.
// A nil *Collector is valid and records nothing.
//
// Metrics:
//   - <ns>_<sub>_group_evaluations_total{logic_type, triggered}
//   - <ns>_<sub>_group_evaluation_duration_seconds{logic_type}
//   - <ns>_<sub>_groups_not_found_total
//   - <ns>_<sub>_condition_evaluations_total{type, matched}
//   - <ns>_<sub>_condition_errors_total{type}
//   - <ns>_<sub>_cache_requests_total{cache, result}
type Collector struct {
	config   Config
	registry *prometheus.Registry

	groupEvaluations     *prometheus.CounterVec
	evaluationDuration   *prometheus.HistogramVec
	groupsNotFound       prometheus.Counter
	conditionEvaluations *prometheus.CounterVec
	conditionErrors      *prometheus.CounterVec

	cacheMetrics *CacheMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// A new registry is created when registry is nil.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "conditions"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "workflow"
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		// Evaluations are in-process and expected to be sub-millisecond
		cfg.EvaluationDurationBuckets = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		groupEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "group_evaluations_total",
				Help:      "Total number of condition group evaluations",
			},
			[]string{"logic_type", "triggered"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "group_evaluation_duration_seconds",
				Help:      "Condition group evaluation latency in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"logic_type"},
		),

		groupsNotFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "groups_not_found_total",
				Help:      "Total number of evaluations for groups that do not exist",
			},
		),

		conditionEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "condition_evaluations_total",
				Help:      "Total number of individual condition evaluations",
			},
			[]string{"type", "matched"},
		),

		conditionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "condition_errors_total",
				Help:      "Total number of condition evaluation failures",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		c.groupEvaluations,
		c.evaluationDuration,
		c.groupsNotFound,
		c.conditionEvaluations,
		c.conditionErrors,
	)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

// RecordGroupEvaluation records one completed group evaluation
func (c *Collector) RecordGroupEvaluation(logicType string, triggered bool, duration time.Duration) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.groupEvaluations.WithLabelValues(logicType, strconv.FormatBool(triggered)).Inc()
	c.evaluationDuration.WithLabelValues(logicType).Observe(duration.Seconds())
}

// RecordGroupNotFound records an evaluation request for a missing group
func (c *Collector) RecordGroupNotFound() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.groupsNotFound.Inc()
}

// RecordConditionEvaluation records one condition outcome
func (c *Collector) RecordConditionEvaluation(conditionType string, matched bool) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.conditionEvaluations.WithLabelValues(conditionType, strconv.FormatBool(matched)).Inc()
}

// RecordConditionError records a condition that failed to evaluate
func (c *Collector) RecordConditionError(conditionType string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.conditionErrors.WithLabelValues(conditionType).Inc()
}

// RecordCacheLookup records a cache hit or miss for the named cache
func (c *Collector) RecordCacheLookup(cache string, hit bool) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordLookup(cache, hit)
}

// Registry returns the registry the collector's metrics are registered with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
