package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistererRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.TransactionsTotal == nil || m.HTTPRequests == nil || m.LedgerOperations == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.TransactionsTotal.WithLabelValues("DEPOSIT", "EXECUTED").Inc()
	m.PositionsOpened.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("DEPOSIT", "EXECUTED")); got != 1 {
		t.Fatalf("expected counter 1, got %v", got)
	}
}

func TestNewWithRegistererIsolatedRegistries(t *testing.T) {
	// Two instances on separate registries must not collide.
	_ = NewWithRegisterer(prometheus.NewRegistry())
	_ = NewWithRegisterer(prometheus.NewRegistry())
}
