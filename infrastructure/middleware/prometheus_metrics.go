package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cloudecole/go-bulletin/internal/application"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

const namespace = "bulletin"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It provides real-time monitoring of report generation, unit execution,
// cache efficiency, and class results.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	reports          *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	unitExecutions   *prometheus.CounterVec
	events           *prometheus.CounterVec
	classGauges      *prometheus.GaugeVec
	percentages      *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics with reg. A nil reg uses the global Prometheus
// registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of report and unit operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_total",
				Help:      "Total number of class reports, by configuration and outcome.",
			},
			[]string{"config", "status"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_hits_total",
				Help:      "Total number of class reports served from the cache.",
			},
			[]string{"config"},
		),
		unitExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unit_executions_total",
				Help:      "Total number of unit executions, by unit type and outcome.",
			},
			[]string{"unit_type", "status"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Counters without a dedicated metric.",
			},
			[]string{"metric"},
		),
		classGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "class_state",
				Help:      "Latest per-class values such as class size and unranked students.",
			},
			[]string{"metric", "class_id"},
		),
		percentages: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "percentage",
				Help:      "Distribution of student percentages.",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"metric", "group"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(operation, labelOr(labels, "status", "unknown")).
		Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case application.MetricReports:
		pm.reports.WithLabelValues(
			labelOr(labels, "config", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case application.MetricCacheHits:
		pm.cacheHits.WithLabelValues(labelOr(labels, "config", "unknown")).Add(value)
	case MetricUnitExecutions:
		pm.unitExecutions.WithLabelValues(
			labelOr(labels, "unit_type", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.classGauges.WithLabelValues(metric, labelOr(labels, "class_id", "unknown")).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.percentages.WithLabelValues(metric, labelOr(labels, "group", "unknown")).Observe(value)
}

// labelOr returns labels[key], or fallback when it is missing or empty.
func labelOr(labels map[string]string, key, fallback string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return fallback
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
