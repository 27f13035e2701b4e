package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRiskMetricsRecordDecision(t *testing.T) {
	m := RiskMetrics()
	okBefore := testutil.ToFloat64(m.decisions.WithLabelValues("borrow", "ok"))
	blockedBefore := testutil.ToFloat64(m.blocks.WithLabelValues("borrow", "cap_reached"))

	m.RecordDecision("borrow", "")
	m.RecordDecision("borrow", "cap_reached")

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("borrow", "ok")); got != okBefore+1 {
		t.Fatalf("expected ok decisions to advance, got %v", got)
	}
	if got := testutil.ToFloat64(m.blocks.WithLabelValues("borrow", "cap_reached")); got != blockedBefore+1 {
		t.Fatalf("expected blocked counter to advance, got %v", got)
	}
}

func TestRiskMetricsCapUsage(t *testing.T) {
	m := RiskMetrics()
	m.RecordCapUsage("usdc", "supply", 99.995, true)
	if got := testutil.ToFloat64(m.capUsage.WithLabelValues("USDC", "supply")); got != 99.995 {
		t.Fatalf("unexpected usage gauge %v", got)
	}
	if got := testutil.ToFloat64(m.capMaxed.WithLabelValues("USDC", "supply")); got != 1 {
		t.Fatalf("expected maxed gauge, got %v", got)
	}
	m.RecordCapUsage("usdc", "supply", 10, false)
	if got := testutil.ToFloat64(m.capMaxed.WithLabelValues("USDC", "supply")); got != 0 {
		t.Fatalf("expected maxed gauge cleared, got %v", got)
	}
}

func TestModuleMetricsObserve(t *testing.T) {
	m := ModuleMetrics()
	before := testutil.ToFloat64(m.errors.WithLabelValues("riskd", "decisions", "409"))
	m.Observe("riskd", "decisions", 409, 5*time.Millisecond)
	if got := testutil.ToFloat64(m.errors.WithLabelValues("riskd", "decisions", "409")); got != before+1 {
		t.Fatalf("expected error counter to advance, got %v", got)
	}
}

func TestSnapshotsRecordIngest(t *testing.T) {
	m := Snapshots()
	before := testutil.ToFloat64(m.ingested.WithLabelValues("market"))
	m.RecordIngest(" Market ")
	if got := testutil.ToFloat64(m.ingested.WithLabelValues("market")); got != before+1 {
		t.Fatalf("expected ingest counter to advance, got %v", got)
	}
}
