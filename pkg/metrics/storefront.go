package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records transaction-path counters served on /metrics.
type StorefrontMetrics struct {
	ordersCreated     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	stkPushes         *prometheus.CounterVec
	callbacks         *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront counters on the provided
// registerer. A nil registerer yields a no-op instance, which is what tests
// and tooling that do not scrape metrics pass in.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders placed from carts.",
	})
	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions by destination status.",
	}, []string{"status"})
	stkPushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_stk_pushes_total",
		Help: "STK push initiations by result.",
	}, []string{"result"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_callbacks_total",
		Help: "Daraja callback deliveries by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(ordersCreated, statusTransitions, stkPushes, callbacks)
	return &StorefrontMetrics{
		ordersCreated:     ordersCreated,
		statusTransitions: statusTransitions,
		stkPushes:         stkPushes,
		callbacks:         callbacks,
	}
}

// IncOrderCreated counts a successfully placed order.
func (s *StorefrontMetrics) IncOrderCreated() {
	if s == nil || s.ordersCreated == nil {
		return
	}
	s.ordersCreated.Inc()
}

// IncStatusTransition counts a committed order status transition.
func (s *StorefrontMetrics) IncStatusTransition(status string) {
	if s == nil || s.statusTransitions == nil {
		return
	}
	s.statusTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncSTKPush counts an STK push attempt with result "accepted" or "failed".
func (s *StorefrontMetrics) IncSTKPush(result string) {
	if s == nil || s.stkPushes == nil {
		return
	}
	s.stkPushes.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncCallback counts a callback delivery with outcome "processed" or "failed".
func (s *StorefrontMetrics) IncCallback(outcome string) {
	if s == nil || s.callbacks == nil {
		return
	}
	s.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
