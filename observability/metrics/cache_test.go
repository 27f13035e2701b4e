package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheMetricsCounters(t *testing.T) {
	m := Cache()
	before := testutil.ToFloat64(m.lookups.WithLabelValues("market", "hit"))
	m.ObserveHit("market")
	m.ObserveMiss("")
	m.SetLatestEpoch(9)

	if got := testutil.ToFloat64(m.lookups.WithLabelValues("market", "hit")); got != before+1 {
		t.Fatalf("expected hit counter to advance, got %v", got)
	}
	if got := testutil.ToFloat64(m.lookups.WithLabelValues("unknown", "miss")); got < 1 {
		t.Fatalf("expected miss under unknown label, got %v", got)
	}
	if got := testutil.ToFloat64(m.epoch); got != 9 {
		t.Fatalf("expected epoch gauge 9, got %v", got)
	}

	var nilMetrics *CacheMetrics
	nilMetrics.ObserveHit("market")
}
