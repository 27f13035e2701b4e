package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the snapshot cache sitting in front of the store.
type CacheMetrics struct {
	lookups  *prometheus.CounterVec
	failures *prometheus.CounterVec
	epoch    prometheus.Gauge
}

var (
	cacheOnce     sync.Once
	cacheRegistry *CacheMetrics
)

func Cache() *CacheMetrics {
	cacheOnce.Do(func() {
		cacheRegistry = &CacheMetrics{
			lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "riskd_cache_lookups_total",
				Help: "Snapshot cache lookups by kind and result.",
			}, []string{"kind", "result"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "riskd_cache_failures_total",
				Help: "Redis operations that failed and fell through to the store.",
			}, []string{"op"}),
			epoch: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "riskd_cache_latest_epoch",
				Help: "Most recent epoch written through the cache.",
			}),
		}
		prometheus.MustRegister(
			cacheRegistry.lookups,
			cacheRegistry.failures,
			cacheRegistry.epoch,
		)
	})
	return cacheRegistry
}

func (m *CacheMetrics) ObserveHit(kind string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(label(kind), "hit").Inc()
}

func (m *CacheMetrics) ObserveMiss(kind string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(label(kind), "miss").Inc()
}

func (m *CacheMetrics) IncFailure(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(label(op)).Inc()
}

func (m *CacheMetrics) SetLatestEpoch(epoch uint64) {
	if m == nil {
		return
	}
	m.epoch.Set(float64(epoch))
}

func label(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
