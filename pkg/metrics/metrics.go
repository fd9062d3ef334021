package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build as many as they like. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced      prometheus.Counter
	orderFailures     *prometheus.CounterVec
	placeOrderSeconds prometheus.Histogram
	statusChanges     *prometheus.CounterVec
	reconciliations   *prometheus.CounterVec
	mergedLines       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_placed_total",
			Help:      "Orders committed by the order workflow.",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_failures_total",
			Help:      "Rejected or aborted order placements by reason.",
		}, []string{"reason"}),
		placeOrderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "place_order_seconds",
			Help:      "Latency of placeOrder including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_status_changes_total",
			Help:      "Order status transitions by target status.",
		}, []string{"status"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_reconciliations_total",
			Help:      "Login cart reconciliations by outcome.",
		}, []string{"outcome"}),
		mergedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_merged_lines_total",
			Help:      "Session cart lines merged into account carts.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersPlaced,
		m.orderFailures,
		m.placeOrderSeconds,
		m.statusChanges,
		m.reconciliations,
		m.mergedLines,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OrderPlaced(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.placeOrderSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) OrderFailed(reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(reason).Inc()
	m.placeOrderSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) Reconciled(outcome string, merged int) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(outcome).Inc()
	m.mergedLines.Add(float64(merged))
}
