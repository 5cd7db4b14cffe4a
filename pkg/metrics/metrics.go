package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order creation outcomes.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	orders   *prometheus.CounterVec
}

// NewCheckoutMetrics registers checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order creation transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_total",
		Help: "Orders processed, labeled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, orders)
	return &CheckoutMetrics{
		duration: duration,
		orders:   orders,
	}
}

// ObserveDuration records how long an order transaction took.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrder counts one order attempt for the given outcome.
func (c *CheckoutMetrics) IncOrder(outcome string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// NotificationMetrics records delivery-worker outcomes.
type NotificationMetrics struct {
	deliveries *prometheus.CounterVec
	retries    prometheus.Counter
}

// NewNotificationMetrics registers notification metrics on the provided registerer.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Notification delivery attempts, labeled by result.",
	}, []string{"result"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_retries_total",
		Help: "Notification tasks rescheduled for another attempt.",
	})
	reg.MustRegister(deliveries, retries)
	return &NotificationMetrics{
		deliveries: deliveries,
		retries:    retries,
	}
}

// IncDelivery counts one delivery attempt result.
func (n *NotificationMetrics) IncDelivery(result string) {
	if n == nil || n.deliveries == nil {
		return
	}
	n.deliveries.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncRetry counts one rescheduled task.
func (n *NotificationMetrics) IncRetry() {
	if n == nil || n.retries == nil {
		return
	}
	n.retries.Inc()
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
