package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	riskMetricsOnce sync.Once
	riskRegistry    *RiskEngineMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// route activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by service, route, and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Total API errors segmented by service, route, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lendingrisk",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// RiskEngineMetrics bundles collectors for capacity decisions and cap usage.
type RiskEngineMetrics struct {
	decisions     *prometheus.CounterVec
	blocks        *prometheus.CounterVec
	capUsage      *prometheus.GaugeVec
	capMaxed      *prometheus.GaugeVec
	preconditions *prometheus.CounterVec
}

// RiskMetrics exposes the metrics registry for the risk engine.
func RiskMetrics() *RiskEngineMetrics {
	riskMetricsOnce.Do(func() {
		riskRegistry = &RiskEngineMetrics{
			decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "engine",
				Name:      "decisions_total",
				Help:      "Count of capacity decisions segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "engine",
				Name:      "blocked_total",
				Help:      "Count of blocked decisions segmented by action and reason.",
			}, []string{"action", "reason"}),
			capUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lendingrisk",
				Subsystem: "engine",
				Name:      "cap_usage_percent",
				Help:      "Percentage of each reserve cap consumed at the latest evaluated epoch.",
			}, []string{"asset", "cap"}),
			capMaxed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lendingrisk",
				Subsystem: "engine",
				Name:      "cap_maxed",
				Help:      "Indicates whether a reserve cap is treated as full (1) or not (0).",
			}, []string{"asset", "cap"}),
			preconditions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "engine",
				Name:      "precondition_failures_total",
				Help:      "Count of evaluations rejected for inconsistent snapshots.",
			}, []string{"operation", "reason"}),
		}
		prometheus.MustRegister(
			riskRegistry.decisions,
			riskRegistry.blocks,
			riskRegistry.capUsage,
			riskRegistry.capMaxed,
			riskRegistry.preconditions,
		)
	})
	return riskRegistry
}

// RecordDecision counts a decision. An empty reason means the action was
// allowed.
func (m *RiskEngineMetrics) RecordDecision(action, reason string) {
	if m == nil {
		return
	}
	action = labelValue(action)
	if reason = strings.TrimSpace(reason); reason == "" {
		m.decisions.WithLabelValues(action, "ok").Inc()
		return
	}
	m.decisions.WithLabelValues(action, "blocked").Inc()
	m.blocks.WithLabelValues(action, reason).Inc()
}

// RecordCapUsage updates the usage gauges for one cap of an asset.
func (m *RiskEngineMetrics) RecordCapUsage(asset, capName string, percent float64, maxed bool) {
	if m == nil {
		return
	}
	label := labelAsset(asset)
	capName = labelValue(capName)
	m.capUsage.WithLabelValues(label, capName).Set(percent)
	if maxed {
		m.capMaxed.WithLabelValues(label, capName).Set(1)
		return
	}
	m.capMaxed.WithLabelValues(label, capName).Set(0)
}

// RecordPrecondition increments the precondition failure counter.
func (m *RiskEngineMetrics) RecordPrecondition(operation, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.preconditions.WithLabelValues(labelValue(operation), reason).Inc()
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func labelValue(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return "unknown"
}
