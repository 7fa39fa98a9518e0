package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestPricingMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPricingMetrics(reg)

	m.CouponEvaluated("applied")
	m.CouponEvaluated("min_order_value")
	m.CouponEvaluated("applied")
	m.CouponRedeemed("already_used")
	m.CheckoutCompleted("")
	m.ObserveRecompute("cart", 40*time.Millisecond)

	if got := testutil.ToFloat64(m.couponEvaluations.WithLabelValues("applied")); got != 2 {
		t.Fatalf("expected applied=2, got %f", got)
	}
	if got := testutil.ToFloat64(m.redemptions.WithLabelValues("already_used")); got != 1 {
		t.Fatalf("expected already_used=1, got %f", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "furnihub_checkouts_total", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch checkouts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected empty outcome to be normalized, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "furnihub_container_recompute_duration_seconds", "container", "cart"); err != nil {
		t.Fatalf("fetch recompute: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected recompute sum > 0, got %f", got)
	}
}

func TestPricingMetricsNilSafe(t *testing.T) {
	var m *PricingMetrics
	m.CouponEvaluated("applied")
	m.CheckoutCompleted("success")

	noop := NewPricingMetrics(nil)
	noop.CouponRedeemed("success")
	noop.ObserveRecompute("sub_order", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
