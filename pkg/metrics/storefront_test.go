package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStorefrontMetrics(reg)
	metrics.IncOrderCreated()
	metrics.IncOrderCreated()
	metrics.IncStatusTransition("shipped")
	metrics.IncSTKPush("accepted")
	metrics.IncCallback("processed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterValue(t, mfs, "orders_created_total", "", ""); got != 2 {
		t.Fatalf("expected orders_created_total=2, got %f", got)
	}
	if got := counterValue(t, mfs, "order_status_transitions_total", "status", "shipped"); got != 1 {
		t.Fatalf("expected shipped transitions=1, got %f", got)
	}
	if got := counterValue(t, mfs, "mpesa_stk_pushes_total", "result", "accepted"); got != 1 {
		t.Fatalf("expected accepted pushes=1, got %f", got)
	}
	if got := counterValue(t, mfs, "mpesa_callbacks_total", "outcome", "processed"); got != 1 {
		t.Fatalf("expected processed callbacks=1, got %f", got)
	}
}

func TestStorefrontMetricsNormalizesEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStorefrontMetrics(reg)
	metrics.IncCallback("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := counterValue(t, mfs, "mpesa_callbacks_total", "outcome", "unknown"); got != 1 {
		t.Fatalf("expected unknown callbacks=1, got %f", got)
	}
}

func TestStorefrontMetricsNilSafe(t *testing.T) {
	var metrics *StorefrontMetrics
	metrics.IncOrderCreated()
	metrics.IncStatusTransition("delivered")
	metrics.IncSTKPush("failed")
	metrics.IncCallback("failed")

	unregistered := NewStorefrontMetrics(nil)
	unregistered.IncOrderCreated()
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %q missing label %s=%s", name, label, value)
	return 0
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, pair := range labels {
		if pair.GetName() == name && pair.GetValue() == value {
			return true
		}
	}
	return false
}
