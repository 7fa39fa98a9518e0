package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "furnihub"

// PricingMetrics records coupon, checkout and recomputation activity.
type PricingMetrics struct {
	couponEvaluations *prometheus.CounterVec
	redemptions       *prometheus.CounterVec
	checkouts         *prometheus.CounterVec
	recompute         *prometheus.HistogramVec
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	couponEvaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_evaluations_total",
		Help:      "Coupon evaluations by outcome (applied or the failed condition).",
	}, []string{"outcome"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_redemptions_total",
		Help:      "Coupon redemption attempts by result.",
	}, []string{"result"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	recompute := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "container_recompute_duration_seconds",
		Help:      "Duration of cart and sub-order total recomputation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"container"})
	reg.MustRegister(couponEvaluations, redemptions, checkouts, recompute)
	return &PricingMetrics{
		couponEvaluations: couponEvaluations,
		redemptions:       redemptions,
		checkouts:         checkouts,
		recompute:         recompute,
	}
}

func (m *PricingMetrics) CouponEvaluated(outcome string) {
	if m == nil || m.couponEvaluations == nil {
		return
	}
	m.couponEvaluations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PricingMetrics) CouponRedeemed(result string) {
	if m == nil || m.redemptions == nil {
		return
	}
	m.redemptions.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *PricingMetrics) CheckoutCompleted(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveRecompute records how long a container recomputation took.
func (m *PricingMetrics) ObserveRecompute(container string, duration time.Duration) {
	if m == nil || m.recompute == nil {
		return
	}
	m.recompute.WithLabelValues(normalizeLabel(container)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
