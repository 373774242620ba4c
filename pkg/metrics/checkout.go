package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// CheckoutMetrics counts the business outcomes of coupons, orders and payments.
type CheckoutMetrics struct {
	ordersCreated     *prometheus.CounterVec
	paymentsConfirmed *prometheus.CounterVec
	couponRejections  *prometheus.CounterVec
	gatewayDuration   *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a recorder whose methods are no-ops.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders persisted, by payment method.",
	}, []string{"payment_method"})
	paymentsConfirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_confirmations_total",
		Help:      "Payment confirmation attempts, by outcome.",
	}, []string{"outcome"})
	couponRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_rejections_total",
		Help:      "Coupon validations that failed, by reason.",
	}, []string{"reason"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of payment gateway calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})
	reg.MustRegister(ordersCreated, paymentsConfirmed, couponRejections, gatewayDuration)
	return &CheckoutMetrics{
		ordersCreated:     ordersCreated,
		paymentsConfirmed: paymentsConfirmed,
		couponRejections:  couponRejections,
		gatewayDuration:   gatewayDuration,
	}
}

func (m *CheckoutMetrics) OrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// PaymentConfirmed records one confirmation attempt. Typical outcomes are
// paid, duplicate and signature_mismatch.
func (m *CheckoutMetrics) PaymentConfirmed(outcome string) {
	if m == nil || m.paymentsConfirmed == nil {
		return
	}
	m.paymentsConfirmed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) CouponRejected(reason string) {
	if m == nil || m.couponRejections == nil {
		return
	}
	m.couponRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *CheckoutMetrics) ObserveGateway(operation, outcome string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
