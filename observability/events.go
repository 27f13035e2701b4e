package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type snapshotMetrics struct {
	ingested *prometheus.CounterVec
}

var (
	snapshotMetricsOnce sync.Once
	snapshotRegistry    *snapshotMetrics
)

// Snapshots returns the metrics registry tracking ingested market and user
// snapshots.
func Snapshots() *snapshotMetrics {
	snapshotMetricsOnce.Do(func() {
		snapshotRegistry = &snapshotMetrics{
			ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendingrisk",
				Subsystem: "snapshots",
				Name:      "ingested_total",
				Help:      "Count of snapshots stored segmented by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(snapshotRegistry.ingested)
	})
	return snapshotRegistry
}

// RecordIngest increments the ingest counter for the supplied snapshot kind.
func (m *snapshotMetrics) RecordIngest(kind string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(kind))
	if normalized == "" {
		normalized = "unknown"
	}
	m.ingested.WithLabelValues(normalized).Inc()
}
